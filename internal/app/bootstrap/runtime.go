// Package bootstrap wires shared runtime dependencies so the API server and
// the standalone worker build the pipeline the same way.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lyosaas/booking-engine/internal/appointment"
	appconfig "github.com/lyosaas/booking-engine/internal/config"
	"github.com/lyosaas/booking-engine/internal/customer"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// Stores bundles the persistence layer behind its interfaces. Close releases
// the underlying pool when one was opened.
type Stores struct {
	Directory    tenant.Directory
	Customers    customer.Repository
	Appointments appointment.Store

	pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildStores opens Postgres-backed stores when DATABASE_URL is set and falls
// back to in-memory stores otherwise, so local development needs no database.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		return &Stores{
			Directory:    tenant.NewMemoryDirectory(),
			Customers:    customer.NewMemoryRepository(),
			Appointments: appointment.NewMemoryStore(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return &Stores{
		Directory:    tenant.NewStore(pool),
		Customers:    customer.NewStore(pool),
		Appointments: appointment.NewPostgresStore(pool),
		pool:         pool,
	}, nil
}

// BuildRedisClient returns a configured Redis client. When verify is true a
// ping is issued and failures return an error.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, verify bool) (*redis.Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, fmt.Errorf("bootstrap: redis address is required")
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client, nil
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("bootstrap: ping redis: %w", err)
	}
	return client, nil
}
