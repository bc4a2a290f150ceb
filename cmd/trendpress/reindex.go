package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/search"
	"github.com/trendpress/trendpress/internal/store"
)

// reindexCMD rebuilds the search index from the articles table. The
// index is derived state; this is the recovery path after losing or
// corrupting it.
func reindexCMD() *cobra.Command {
	var cfgPath string
	var planDate string

	var reindex = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the article search index from Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			idx, err := search.Open(cfg.Search.IndexPath)
			if err != nil {
				return err
			}
			defer idx.Close()

			articles, err := st.ListArticles(ctx, store.ArticleFilter{PlanDate: planDate})
			if err != nil {
				return err
			}
			indexed := 0
			for _, a := range articles {
				if err := idx.IndexArticle(a); err != nil {
					return fmt.Errorf("index article %s: %w", a.ID, err)
				}
				indexed++
			}
			fmt.Printf("reindexed %d articles\n", indexed)
			return nil
		},
	}
	reindex.Flags().StringVar(&planDate, "date", "", "only reindex articles for one plan date")
	reindex.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return reindex
}
