package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shoplive/pkg/retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Options struct {
	DSN            string
	MaxConns       int32
	ConnectRetries int
	RunMigrations  bool
}

// NewPool connects to PostgreSQL, retrying the first ping while the database
// comes up, and applies the embedded migrations when asked to.
func NewPool(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	rc := retry.DefaultConfig()
	if opts.ConnectRetries > 0 {
		rc.MaxAttempts = opts.ConnectRetries
	}
	pool, err := retry.DoWithResult(ctx, rc, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return pool, nil
	}, func(attempt int, err error) {
		logger.Warnw("PostgreSQL not reachable, retrying", "attempt", attempt, "error", err)
	})
	if err != nil {
		return nil, err
	}

	if opts.RunMigrations {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Infow("PostgreSQL connection pool established", "max_conns", cfg.MaxConns)
	return pool, nil
}

// Migrate runs the embedded SQL files in name order. Every statement is
// idempotent, so reruns are safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err = pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}
