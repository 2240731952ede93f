// Package bootstrap builds the document store and Redis client shared by the
// server and the seed command.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"socialhub/internal/cache"
	"socialhub/internal/config"
	"socialhub/internal/database"
	"socialhub/internal/store"

	"github.com/redis/go-redis/v9"
)

// InitRuntime connects Redis (when configured) and opens the store selected
// by STORE_DRIVER. The Redis client is nil when REDIS_URL is empty or Redis
// is unreachable and nothing but auxiliary features depend on it.
func InitRuntime(ctx context.Context, cfg *config.Config) (store.Store, *redis.Client, error) {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		switch {
		case err == nil:
			rdb = client
		case cfg.StoreDriver == config.StoreRedis:
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		default:
			slog.Warn("redis unavailable, continuing without pub/sub, revocation and shared rate limits",
				slog.String("error", err.Error()))
		}
	}

	st, err := openStore(cfg, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, err
	}

	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, fmt.Errorf("store ping failed: %w", err)
	}
	slog.Info("store ready", slog.String("driver", cfg.StoreDriver), slog.Bool("redis", rdb != nil))
	return st, rdb, nil
}

func openStore(cfg *config.Config, rdb *redis.Client) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreRedis:
		return store.NewRedis(rdb), nil
	case config.StorePostgres, config.StoreSQLite:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return store.NewSQL(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
