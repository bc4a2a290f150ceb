package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/generator"
	"github.com/trendpress/trendpress/internal/plan"
	"github.com/trendpress/trendpress/internal/research"
	"github.com/trendpress/trendpress/internal/search"
	"github.com/trendpress/trendpress/internal/store"
)

// writeCMD generates one article for an explicit topic outside any
// plan. Useful for prompt tuning and smoke-testing providers.
func writeCMD() *cobra.Command {
	var cfgPath string
	var topic string
	var category string
	var noResearch bool

	var write = &cobra.Command{
		Use:   "write",
		Short: "Generate, store and index one article for a topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return fmt.Errorf("--topic required")
			}
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()
			now := time.Now().UTC()

			st, err := openStore(ctx, cfg)
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

			trend := plan.TrendCandidate{Title: topic, Category: category}
			digest := ""
			if cfg.Research.Enabled && !noResearch {
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
				digest, err = res.Digest(ctx, trend)
				if err != nil {
					fmt.Printf("research failed, generating ungrounded: %v\n", err)
					digest = ""
				}
			}

			article, err := gen.Generate(ctx, generator.Request{
				Trend:          trend,
				PlanDate:       now.Format("2006-01-02"),
				ResearchDigest: digest,
			})
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			rec := store.ArticleRecord{
				ID:           uuid.NewString(),
				PlanDate:     now.Format("2006-01-02"),
				Title:        article.Title,
				Topic:        topic,
				Category:     category,
				Model:        article.Model,
				BodyMarkdown: article.BodyMarkdown,
				Summary:      article.Summary,
				TokensUsed:   article.TokensUsed,
				CreatedAt:    now,
			}
			if err := st.InsertArticle(ctx, rec); err != nil {
				return err
			}
			idx, err := search.Open(cfg.Search.IndexPath)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.IndexArticle(rec); err != nil {
				fmt.Printf("index article: %v\n", err)
			}

			fmt.Printf("article %s (%d tokens via %s)\n%s\n", rec.ID, rec.TokensUsed, rec.Model, article.Title)
			return nil
		},
	}
	write.Flags().StringVar(&topic, "topic", "", "topic to write about (required)")
	write.Flags().StringVar(&category, "category", "", "category hint for prompt style")
	write.Flags().BoolVar(&noResearch, "no-research", false, "skip the research pass")
	write.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return write
}
