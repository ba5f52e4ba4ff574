package signal

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/utils"
)

// Authenticator resolves a bearer token to the identity it was issued for.
type Authenticator interface {
	Authenticate(token string) (domain.UserID, error)
}

type WebSocketServer struct {
	hub        *Hub
	router     *Router
	presence   ports.PresenceRegistry
	reconciler ports.DisconnectReconciler
	auth       Authenticator
	metrics    ports.Metrics

	opts     ClientOptions
	upgrader websocket.Upgrader

	logger *zap.SugaredLogger
}

// NewWebSocketServer wires the transport. auth may be nil, in which case
// connections bind their identity from the first event that names one.
func NewWebSocketServer(
	hub *Hub,
	router *Router,
	presence ports.PresenceRegistry,
	reconciler ports.DisconnectReconciler,
	auth Authenticator,
	metrics ports.Metrics,
	opts ClientOptions,
	allowedOrigins []string,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	return &WebSocketServer{
		hub:        hub,
		router:     router,
		presence:   presence,
		reconciler: reconciler,
		auth:       auth,
		metrics:    metrics,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// idle connections hold no write buffer
			WriteBufferPool: &sync.Pool{},
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *WebSocketServer) Handler() gin.HandlerFunc {
	return gin.WrapF(s.HandleWebSocket)
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var identity domain.UserID
	if s.auth != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("Authorization")
		}
		id, err := s.auth.Authenticate(token)
		if err != nil {
			s.logger.Infow("Rejected websocket handshake", "remote", r.RemoteAddr, "error", err)
			http.Error(w, `{"code":"UNAUTHORIZED","message":"invalid or missing token"}`, http.StatusUnauthorized)
			return
		}
		identity = id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(domain.ConnID(utils.NewPrefixedID("conn")), conn, s.opts, s.metrics, s.logger)
	client.identity = identity

	s.hub.Register(client)
	s.metrics.ConnectionOpened()
	if identity != "" {
		if prev, replaced := s.presence.Register(identity, client); replaced {
			rooms := s.hub.Transfer(prev, client)
			s.logger.Infow("Connection superseded",
				"user_id", identity,
				"conn_id", client.ID(),
				"previous_conn_id", prev.ID(),
				"rooms", rooms,
			)
		}
		s.metrics.SetOnlineUsers(s.presence.Count())
	}
	s.logger.Infow("Websocket connected", "conn_id", client.ID(), "user_id", identity, "remote", r.RemoteAddr)

	go client.writePump()
	client.readPump(s.router.Dispatch)

	s.disconnect(client)
}

func (s *WebSocketServer) disconnect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.reconciler.Reconcile(ctx, c)
	s.hub.Unregister(c)
	_ = c.Close()
	s.metrics.ConnectionClosed()
	s.logger.Infow("Websocket disconnected", "conn_id", c.ID())
}

// Shutdown closes every open connection; each one is reconciled as its
// read loop exits.
func (s *WebSocketServer) Shutdown() {
	s.hub.CloseAll()
}

func (s *WebSocketServer) ConnectionCount() int {
	return s.hub.ConnectionCount()
}
