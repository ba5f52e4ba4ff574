package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shoplive/internal/core/ports"
	"shoplive/internal/core/presence"
	"shoplive/internal/core/services"
	"shoplive/internal/core/session"
	httphandlers "shoplive/internal/handlers/http"
	"shoplive/internal/infrastructure/middleware"
	"shoplive/internal/infrastructure/monitoring"
	"shoplive/internal/infrastructure/reliability"
	"shoplive/internal/infrastructure/repositories"
	wsignal "shoplive/internal/infrastructure/signal"
	"shoplive/pkg/batch"
	"shoplive/pkg/circuitbreaker"
	"shoplive/pkg/config"
	"shoplive/pkg/logger"
	"shoplive/pkg/tracing"
	"shoplive/pkg/validation"
)

func main() {
	startTime := time.Now()

	configPath := flag.String("config", envOr("SHOPLIVE_CONFIG", "configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet; the zap default is good enough to report this.
		zap.NewExample().Sugar().Fatalw("Failed to load config", "path", *configPath, "error", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		zap.NewExample().Sugar().Fatalw("Failed to build logger", "error", err)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: envOr("SHOPLIVE_ENV", "development"),
		SampleRate:  cfg.Tracing.SamplingRatio,
	})
	if err != nil {
		log.Fatalw("Failed to initialise tracing", "error", err)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	repoFactory, err := repositories.NewRepositoryFactory(startCtx, cfg, log)
	startCancel()
	if err != nil {
		log.Fatalw("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}

	reportCtx, stopReporting := context.WithCancel(context.Background())
	defer stopReporting()

	var metrics ports.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
	} else {
		inProcess := services.NewMetricsService()
		go services.NewMetricsReporter(inProcess, cfg.Monitoring.MetricsInterval, log).Run(reportCtx)
		metrics = inProcess
	}

	streamRepo := repoFactory.CreateStreamRepository()
	messageRepo := repoFactory.CreateMessageRepository()
	engagementRepo := reliability.NewEngagementRepository(
		repoFactory.CreateEngagementRepository(),
		repoFactory.Driver(),
		circuitbreaker.Config{
			FailureThreshold:    cfg.Persistence.CircuitBreaker.MaxFailures,
			SuccessThreshold:    cfg.Persistence.CircuitBreaker.SuccessThreshold,
			Timeout:             cfg.Persistence.CircuitBreaker.ResetTimeout,
			MaxRequestsHalfOpen: 1,
		},
		log,
	)

	writes := batch.NewBatcher(
		cfg.Persistence.BatchSize,
		cfg.Persistence.FlushInterval,
		cfg.Persistence.WriteTimeout,
		func(op string, err error) {
			metrics.RecordStorageFailure(op)
			log.Errorw("Deferred write failed", "op", op, "error", err)
		},
	)

	registry := presence.NewRegistry()
	store := session.NewStore(session.Config{
		MaxComments:     cfg.Session.MaxComments,
		CommentInterval: cfg.Session.CommentInterval,
	})
	hub := wsignal.NewHub(log)

	messaging := services.NewMessagingService(messageRepo, registry, hub, metrics, log)
	streams := services.NewStreamSessionService(streamRepo, engagementRepo, store, hub, writes, metrics, log)
	reconciler := services.NewDisconnectReconciler(registry, store, streams, metrics, log)

	if cfg.Recovery.Enabled {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := services.NewRecoverySweeper(streamRepo, store, log).
			WithLock(repoFactory.CreateLocker("recovery", cfg.Recovery.LockTTL)).
			Sweep(sweepCtx)
		sweepCancel()
		if err != nil {
			log.Warnw("Recovery sweep incomplete", "deactivated", n, "error", err)
		}
	}

	validator := validation.New()
	router := wsignal.NewRouter(hub, registry, messaging, streams, validator, metrics, log)

	var authService *services.AuthService
	var wsAuth wsignal.Authenticator
	if cfg.Auth.Enabled {
		authService = services.NewAuthService(cfg.Auth.JWTSecret)
		wsAuth = authService
	}

	clientOpts := wsignal.ClientOptions{
		PingInterval:   cfg.Signal.PingInterval,
		PongTimeout:    cfg.Signal.PongTimeout,
		WriteTimeout:   cfg.Signal.WriteTimeout,
		SendBuffer:     cfg.Signal.SendBuffer,
		MaxMessageSize: cfg.Signal.MaxMessageSize,
	}
	if cfg.RateLimiting.Enabled {
		clientOpts.EventsPerSecond = cfg.RateLimiting.WebSocket.EventsPerSecond
		clientOpts.Burst = cfg.RateLimiting.WebSocket.Burst
	}
	wsServer := wsignal.NewWebSocketServer(hub, router, registry, reconciler, wsAuth, metrics, clientOpts, cfg.Signal.AllowedOrigins, log)

	health := monitoring.NewHealthChecker()
	health.AddCheck("storage", repoFactory.HealthCheck, 2*time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(log),
	)

	engine.GET(cfg.Signal.Path, wsServer.Handler())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      monitoring.StatusHealthy,
			"timestamp":   time.Now().UTC(),
			"uptime":      time.Since(startTime).String(),
			"connections": wsServer.ConnectionCount(),
			"live_rooms":  store.Count(),
		})
	})

	engine.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	var streamQueries ports.StreamQueryService = streams
	if cfg.Cache.Enabled {
		cached := services.NewCachedStreamQuery(streams, cfg.Cache.TTL)
		defer cached.Stop()
		streamQueries = cached
	}

	api := engine.Group("/api/v1")
	api.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if authService != nil {
		api.Use(middleware.AuthMiddleware(authService))
	}
	for _, h := range []ports.HTTPHandler{
		httphandlers.NewMessageHandler(messaging, validator),
		httphandlers.NewStreamHandler(streamQueries, validator),
	} {
		h.RegisterRoutes(api)
	}

	// No WriteTimeout: it would cut long-lived websocket connections.
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           engine,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting ShopLive signal server",
			"address", cfg.Server.Address,
			"ws_path", cfg.Signal.Path,
			"storage", repoFactory.Driver(),
			"auth", cfg.Auth.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		_ = srv.Close()
	}

	// Hijacked websocket connections are not covered by srv.Shutdown.
	wsServer.Shutdown()
	for wsServer.ConnectionCount() > 0 && shutdownCtx.Err() == nil {
		time.Sleep(20 * time.Millisecond)
	}

	// Disconnect reconciliation enqueues writes; drain them before storage goes away.
	writes.Stop()

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing storage", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error flushing traces", "error", err)
	}
	stopReporting()

	log.Info("ShopLive signal server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
