package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/store"
)

func planCMD() *cobra.Command {
	var cfgPath string
	var date string
	var force bool

	var planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Build and store the daily plan, then print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()
			now := time.Now().UTC()
			if date == "" {
				date = now.Format("2006-01-02")
			}

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

			candidates, err := source.FetchCandidates(ctx, date)
			if err != nil {
				return fmt.Errorf("fetch candidates: %w", err)
			}
			built, err := builder.Build(ctx, date, candidates, now)
			if err != nil {
				return err
			}
			if err := st.SavePlan(ctx, built, force); err != nil {
				if errors.Is(err, store.ErrPlanExists) {
					return fmt.Errorf("plan exists for %s; rerun with --force to overwrite", date)
				}
				return err
			}

			fmt.Printf("plan %s: %d candidates in, %d jobs scheduled\n", date, len(candidates), len(built.Jobs))
			for _, j := range built.Jobs {
				fmt.Printf("  %2d. %-40q volume=%-8d at %s\n",
					j.Position, j.Trend.Title, j.Trend.SearchVolume, j.ScheduledAt.Format("15:04"))
			}
			return nil
		},
	}
	planCmd.Flags().StringVar(&date, "date", "", "plan date YYYY-MM-DD (default today UTC)")
	planCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing plan")
	planCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return planCmd
}
