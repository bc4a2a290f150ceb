// Package trends supplies ranked trend candidates for a planning run.
package trends

import (
	"context"
	"fmt"
	"time"

	"github.com/trendpress/trendpress/internal/plan"
)

// Source fetches the day's candidate topics. Implementations rank by
// whatever popularity signal they have; the planner re-sorts by search
// volume anyway.
type Source interface {
	FetchCandidates(ctx context.Context, date string) ([]plan.TrendCandidate, error)
}

// Config selects and tunes a trend source.
type Config struct {
	Provider string        `mapstructure:"provider"` // googletrends or static
	Geo      string        `mapstructure:"geo"`
	Endpoint string        `mapstructure:"endpoint"`
	SeedFile string        `mapstructure:"seed_file"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c Config) Validate() error {
	switch c.Provider {
	case "", "googletrends":
		return nil
	case "static":
		if c.SeedFile == "" {
			return fmt.Errorf("trends.seed_file required for the static provider")
		}
		return nil
	default:
		return fmt.Errorf("unknown trends provider %q", c.Provider)
	}
}

// NewSource builds the configured source. Defaults to googletrends.
func NewSource(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "", "googletrends":
		return NewGoogleTrends(cfg.Geo, cfg.Endpoint, cfg.Timeout), nil
	case "static":
		return &StaticSource{Path: cfg.SeedFile}, nil
	default:
		return nil, fmt.Errorf("unknown trends provider %q", cfg.Provider)
	}
}
