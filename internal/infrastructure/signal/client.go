package signal

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
)

var (
	ErrClientClosed   = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   string          `json:"ack,omitempty"`
}

type ClientOptions struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MaxMessageSize int64

	// Zero disables the inbound limit.
	EventsPerSecond float64
	Burst           int
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		PingInterval:    25 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		SendBuffer:      256,
		MaxMessageSize:  64 * 1024,
		EventsPerSecond: 20,
		Burst:           40,
	}
}

// Client is one websocket connection. Outbound frames are queued on a
// bounded channel drained by writePump; a full queue drops the frame.
type Client struct {
	id   domain.ConnID
	conn *websocket.Conn
	opts ClientOptions

	// identity is set at handshake when the token names the user.
	identity domain.UserID

	send      chan Envelope
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter

	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

var _ ports.Connection = (*Client)(nil)

func NewClient(id domain.ConnID, conn *websocket.Conn, opts ClientOptions, metrics ports.Metrics, logger *zap.SugaredLogger) *Client {
	def := DefaultClientOptions()
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = def.PongTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	c := &Client{
		id:      id,
		conn:    conn,
		opts:    opts,
		send:    make(chan Envelope, opts.SendBuffer),
		done:    make(chan struct{}),
		metrics: metrics,
		logger:  logger,
	}
	if opts.EventsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.EventsPerSecond)
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventsPerSecond), burst)
	}
	return c
}

func (c *Client) ID() domain.ConnID { return c.id }

// Identity is the user bound at handshake, or "" when unauthenticated.
func (c *Client) Identity() domain.UserID { return c.identity }

func (c *Client) Send(event string, data interface{}) error {
	return c.reply(event, "", data)
}

func (c *Client) reply(event, ack string, data interface{}) error {
	frame := Envelope{Event: event, Ack: ack}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		frame.Data = raw
	}
	return c.enqueue(frame)
}

func (c *Client) enqueue(frame Envelope) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.metrics.RecordDroppedFrame()
		c.logger.Warnw("Dropping outbound frame", "conn_id", c.id, "event", frame.Event)
		return ErrSendBufferFull
	}
}

// Close asks writePump to send a close frame and tear the socket down.
// Safe to call repeatedly.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// allow applies the per-connection inbound rate limit.
func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// readPump blocks until the peer goes away or stops answering pings. Each
// frame is handed to dispatch in arrival order.
func (c *Client) readPump(dispatch func(c *Client, raw []byte)) {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Infow("Websocket read failed", "conn_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
		dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Debugw("Websocket write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(c.opts.WriteTimeout))
			return
		}
	}
}
