package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/dispatch"
	"github.com/trendpress/trendpress/internal/generator"
	"github.com/trendpress/trendpress/internal/research"
	"github.com/trendpress/trendpress/internal/search"
)

func tickCMD() *cobra.Command {
	var cfgPath string

	var tick = &cobra.Command{
		Use:   "tick",
		Short: "Run a single dispatch tick and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			rdb, err := openRedis(ctx, cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			builder, source, err := newPlanner(cfg, rdb)
			if err != nil {
				return err
			}
			gen, err := generator.NewGenerator(ctx, generator.Config{
				Provider:    cfg.Generator.Provider,
				APIKey:      cfg.Generator.APIKey,
				Model:       cfg.Generator.Model,
				Endpoint:    cfg.Generator.Endpoint,
				Temperature: cfg.Generator.Temperature,
				MaxTokens:   cfg.Generator.MaxTokens,
				Timeout:     cfg.Generator.Timeout,
				PromptsFile: cfg.Generator.PromptsFile,
			})
			if err != nil {
				return err
			}
			idx, err := search.Open(cfg.Search.IndexPath)
			if err != nil {
				return err
			}
			defer idx.Close()

			disp := dispatch.New(st, source, builder, gen, dispatch.Config{
				DispatchTimeout: cfg.Scheduler.DispatchTimeout,
				StaleAfter:      cfg.Scheduler.StaleAfter,
				LockTTL:         cfg.Scheduler.LockTTL,
				BuildCron:       cfg.Planner.BuildCron,
			}, nil)
			disp.Rdb = rdb
			disp.Index = idx
			if cfg.Research.Enabled {
				res, err := research.New(research.Config{
					Enabled:    true,
					MaxSources: cfg.Research.MaxSources,
					Fetcher:    cfg.Research.Fetcher,
					Timeout:    cfg.Research.Timeout,
					MaxChars:   cfg.Research.MaxChars,
				}, nil)
				if err != nil {
					return err
				}
				disp.Research = res
			}

			return disp.Tick(ctx, time.Now().UTC())
		},
	}
	tick.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return tick
}
