package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Signal struct {
		Path           string        `yaml:"path"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		SendBuffer     int           `yaml:"send_buffer"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"signal"`

	Session struct {
		MaxComments     int           `yaml:"max_comments"`
		CommentInterval time.Duration `yaml:"comment_interval"`
	} `yaml:"session"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | redis | postgres
	} `yaml:"storage"`

	Redis struct {
		Address   string `yaml:"address"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		PoolSize  int    `yaml:"pool_size"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Postgres struct {
		DSN            string `yaml:"dsn"`
		MaxConns       int32  `yaml:"max_conns"`
		RunMigrations  bool   `yaml:"run_migrations"`
		ConnectRetries int    `yaml:"connect_retries"`
	} `yaml:"postgres"`

	Persistence struct {
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`

		CircuitBreaker struct {
			MaxFailures      int           `yaml:"max_failures"`
			ResetTimeout     time.Duration `yaml:"reset_timeout"`
			SuccessThreshold int           `yaml:"success_threshold"`
		} `yaml:"circuit_breaker"`
	} `yaml:"persistence"`

	Recovery struct {
		Enabled bool          `yaml:"enabled"`
		LockTTL time.Duration `yaml:"lock_ttl"`
	} `yaml:"recovery"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Monitoring struct {
		PrometheusEnabled bool          `yaml:"prometheus_enabled"`
		MetricsInterval   time.Duration `yaml:"metrics_interval"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		ServiceName    string  `yaml:"service_name"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SamplingRatio  float64 `yaml:"sampling_ratio"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Auth struct {
		Enabled   bool   `yaml:"enabled"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		WebSocket struct {
			EventsPerSecond float64 `yaml:"events_per_second"`
			Burst           int     `yaml:"burst"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Signal
	if c.Signal.Path == "" {
		return fmt.Errorf("signal.path must not be empty")
	}
	if c.Signal.PingInterval <= 0 {
		return fmt.Errorf("signal.ping_interval must be > 0")
	}
	if c.Signal.PongTimeout <= c.Signal.PingInterval {
		return fmt.Errorf("signal.pong_timeout must be greater than signal.ping_interval")
	}
	if c.Signal.WriteTimeout <= 0 {
		return fmt.Errorf("signal.write_timeout must be > 0")
	}
	if c.Signal.SendBuffer <= 0 {
		return fmt.Errorf("signal.send_buffer must be > 0")
	}
	if c.Signal.MaxMessageSize <= 0 {
		return fmt.Errorf("signal.max_message_size must be > 0")
	}

	// Session
	if c.Session.MaxComments <= 0 {
		return fmt.Errorf("session.max_comments must be > 0")
	}
	if c.Session.CommentInterval < 0 {
		return fmt.Errorf("session.comment_interval must be >= 0")
	}

	// Storage
	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when storage.driver=redis")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when storage.driver=redis")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must not be empty when storage.driver=postgres")
		}
		if c.Postgres.MaxConns <= 0 {
			return fmt.Errorf("postgres.max_conns must be > 0 when storage.driver=postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, redis, postgres (got %q)", c.Storage.Driver)
	}

	// Persistence
	if c.Persistence.BatchSize <= 0 {
		return fmt.Errorf("persistence.batch_size must be > 0")
	}
	if c.Persistence.FlushInterval <= 0 {
		return fmt.Errorf("persistence.flush_interval must be > 0")
	}
	if c.Persistence.WriteTimeout <= 0 {
		return fmt.Errorf("persistence.write_timeout must be > 0")
	}
	if c.Persistence.CircuitBreaker.MaxFailures <= 0 {
		return fmt.Errorf("persistence.circuit_breaker.max_failures must be > 0")
	}
	if c.Persistence.CircuitBreaker.ResetTimeout <= 0 {
		return fmt.Errorf("persistence.circuit_breaker.reset_timeout must be > 0")
	}

	if c.Recovery.Enabled && c.Recovery.LockTTL <= 0 {
		return fmt.Errorf("recovery.lock_ttl must be > 0 when recovery is enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0 when cache is enabled")
	}

	// Monitoring
	if c.Monitoring.MetricsInterval <= 0 {
		return fmt.Errorf("monitoring.metrics_interval must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerEndpoint == "" {
			return fmt.Errorf("tracing.jaeger_endpoint must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
			return fmt.Errorf("tracing.sampling_ratio must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Auth
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty when auth.enabled=true")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.EventsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.websocket.events_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Signal.Path = "/ws"
	cfg.Signal.PingInterval = 25 * time.Second
	cfg.Signal.PongTimeout = 60 * time.Second
	cfg.Signal.WriteTimeout = 10 * time.Second
	cfg.Signal.SendBuffer = 256
	cfg.Signal.MaxMessageSize = 64 * 1024
	cfg.Signal.AllowedOrigins = []string{"*"}

	cfg.Session.MaxComments = 50
	cfg.Session.CommentInterval = time.Second

	cfg.Storage.Driver = "memory"

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.KeyPrefix = "shoplive:"

	cfg.Postgres.DSN = ""
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.RunMigrations = true
	cfg.Postgres.ConnectRetries = 5

	cfg.Persistence.BatchSize = 100
	cfg.Persistence.FlushInterval = 200 * time.Millisecond
	cfg.Persistence.WriteTimeout = 5 * time.Second
	cfg.Persistence.CircuitBreaker.MaxFailures = 5
	cfg.Persistence.CircuitBreaker.ResetTimeout = 30 * time.Second
	cfg.Persistence.CircuitBreaker.SuccessThreshold = 2

	cfg.Recovery.Enabled = true
	cfg.Recovery.LockTTL = 30 * time.Second

	cfg.Cache.Enabled = true
	cfg.Cache.TTL = 2 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsInterval = 15 * time.Second

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "shoplive-signal"
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SamplingRatio = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Auth.Enabled = false
	cfg.Auth.JWTSecret = "change-me-in-production"

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.EventsPerSecond = 20
	cfg.RateLimiting.WebSocket.Burst = 40

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SHOPLIVE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("SHOPLIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if driver := os.Getenv("SHOPLIVE_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if addr := os.Getenv("SHOPLIVE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if dsn := os.Getenv("SHOPLIVE_POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
	}
	if secret := os.Getenv("SHOPLIVE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
