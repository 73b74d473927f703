package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mbella-dev/colisflow/internal/config"
	"github.com/mbella-dev/colisflow/internal/intake"
	"github.com/mbella-dev/colisflow/internal/msglink"
	"github.com/mbella-dev/colisflow/internal/observability/metrics"
	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
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
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildOrderStore connects to Postgres when DATABASE_URL is set, otherwise
// it falls back to the in-memory store for local runs. The returned pool is
// nil in the in-memory case; callers own closing it.
func BuildOrderStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (orders.Repository, *pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; orders are kept in memory")
		return orders.NewInMemoryRepository(), nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return orders.NewPostgresRepository(pool), pool, nil
}

// BuildIntakeService assembles the classification pipeline around the
// given stores. A nil redis client disables reply linkage; resolution then
// relies on phone lookup alone.
func BuildIntakeService(cfg *appconfig.Config, store orders.Repository, redisClient *redis.Client, reg prometheus.Registerer, logger *logging.Logger) *intake.Service {
	if logger == nil {
		logger = logging.Default()
	}

	var links intake.LinkStore
	if redisClient != nil {
		links = msglink.NewStore(redisClient, cfg.MsgLinkTTL)
	} else {
		logger.Warn("reply linkage disabled; redis not configured")
	}

	classifier := intake.NewClassifier(intake.DefaultGazetteer())
	m := metrics.NewIntakeMetrics(reg)
	return intake.NewService(classifier, store, links, m, logger)
}
