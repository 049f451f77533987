package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/config"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	applicationName = "storefront"

	initialRetryDelay = 250 * time.Millisecond
	maxRetryDelay     = 4 * time.Second
)

// NewPool creates a PostgreSQL connection pool and waits until the server answers.
// Startup pings are retried with backoff so the API can start alongside its database.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	applyRuntimeParams(poolConfig.ConnConfig.RuntimeParams, cfg)

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Dur("lock_timeout", cfg.LockTimeout).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, max(cfg.ConnectAttempts, 1), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool ready")
	return pool, nil
}

// applyRuntimeParams sets the session parameters every pooled connection starts with.
func applyRuntimeParams(params map[string]string, cfg config.DatabaseConfig) {
	params["application_name"] = applicationName
	if cfg.LockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(cfg.LockTimeout.Milliseconds(), 10)
	}
}

func ping(ctx context.Context, pool *pgxpool.Pool, attempts int, logger zerolog.Logger) error {
	delay := initialRetryDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			break
		}

		logger.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("database not reachable yet")

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
	return err
}

// retryable reports whether a failed ping may succeed later.
// Authentication and missing-database errors will not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28000", // invalid_authorization_specification
			"28P01", // invalid_password
			"3D000": // invalid_catalog_name
			return false
		}
	}
	return true
}
