package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/txengine/internal/adapter/repository/redis"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/postgres"
	"github.com/iho/txengine/internal/infrastructure/redis"
	"github.com/iho/txengine/internal/usecase"
)

const (
	exportRedis    = "redis"
	exportPostgres = "postgres"
)

// backends holds the optional external stores of a process.
type backends struct {
	redis     *goredis.Client
	pool      *pgxpool.Pool
	exporters []usecase.BalanceExporter
	loader    usecase.BalanceLoader
}

// connectBackends connects the stores named in exports. With connectAll set
// every configured store is connected even when nothing exports to it.
func connectBackends(ctx context.Context, cfg *config.Config, exports []string, connectAll bool, log zerolog.Logger) (*backends, error) {
	want := map[string]bool{}
	for _, name := range exports {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case exportRedis, exportPostgres:
			want[name] = true
		default:
			return nil, fmt.Errorf("unknown exporter %q (want %s or %s)", name, exportRedis, exportPostgres)
		}
	}

	if want[exportRedis] && cfg.RedisURL == "" {
		return nil, fmt.Errorf("export to %s requires REDIS_URL", exportRedis)
	}
	if want[exportPostgres] && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("export to %s requires DATABASE_URL", exportPostgres)
	}

	b := &backends{}

	if cfg.RedisURL != "" && (want[exportRedis] || connectAll) {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.redis = client
		log.Info().Msg("connected to redis")

		exp := redisRepo.NewBalanceExporter(client, cfg.RedisKeyPrefix, cfg.RedisTTL)
		b.loader = exp
		if want[exportRedis] {
			b.exporters = append(b.exporters, exp)
		}
	}

	if cfg.DatabaseURL != "" && (want[exportPostgres] || connectAll) {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
		log.Info().Msg("connected to postgres")

		retrier := postgresRepo.NewRetrier(postgresRepo.RetryPolicy{
			MaxRetries:     cfg.DatabaseRetryMax,
			MaxElapsedTime: cfg.DatabaseRetryMaxElapsed,
		}, log)
		exp := postgresRepo.NewBalanceExporter(pool, retrier)
		// postgres keeps runs without a TTL, so it wins as the read source
		b.loader = exp
		if want[exportPostgres] {
			b.exporters = append(b.exporters, exp)
		}
	}

	return b, nil
}

// Close releases every connected store.
func (b *backends) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
