package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/blockpipe"
	"github.com/meikuraledutech/blockpipe/catalog"
	"github.com/meikuraledutech/blockpipe/internal/config"
	"github.com/meikuraledutech/blockpipe/memory"
	"github.com/meikuraledutech/blockpipe/postgres"
	"github.com/meikuraledutech/blockpipe/redis"
)

// openStore builds the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (blockpipe.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		return store, func() {}, nil
	default:
		return memory.New(), func() {}, nil
	}
}

func openCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Catalog)
}
