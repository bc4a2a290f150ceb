package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/ledger"
	"github.com/trendpress/trendpress/internal/plan"
	"github.com/trendpress/trendpress/internal/store"
	"github.com/trendpress/trendpress/internal/trends"
)

// openRedis connects and pings; the ledger and dispatch lock both ride
// on this client.
func openRedis(ctx context.Context, cfg *appconfig.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	return rdb, nil
}

func openStore(ctx context.Context, cfg *appconfig.Config) (*store.Store, error) {
	return store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
}

func newPlanner(cfg *appconfig.Config, rdb *redis.Client) (*plan.Builder, trends.Source, error) {
	topics := ledger.NewRedisLedger(rdb, cfg.Ledger.Window)
	builder, err := plan.NewBuilder(topics, plan.BuilderConfig{
		MaxJobs:   cfg.Planner.MaxJobs,
		StartHour: cfg.Planner.StartHour,
		EndHour:   cfg.Planner.EndHour,
	})
	if err != nil {
		return nil, nil, err
	}
	source, err := trends.NewSource(trends.Config{
		Provider: cfg.Trends.Provider,
		Geo:      cfg.Trends.Geo,
		Endpoint: cfg.Trends.Endpoint,
		SeedFile: cfg.Trends.SeedFile,
		Timeout:  cfg.Trends.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return builder, source, nil
}
