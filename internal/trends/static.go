package trends

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trendpress/trendpress/internal/plan"
)

// StaticSource reads candidates from a YAML seed file. Useful for dev
// runs and air-gapped environments where the live feed is unreachable.
//
// Seed layout:
//
//	candidates:
//	  - title: solar eclipse
//	    search_volume: 200000
//	    category: science
type StaticSource struct {
	Path string
}

var _ Source = (*StaticSource)(nil)

type seedFile struct {
	Candidates []struct {
		Title        string `yaml:"title"`
		SearchVolume int    `yaml:"search_volume"`
		Category     string `yaml:"category"`
	} `yaml:"candidates"`
}

func (s *StaticSource) FetchCandidates(ctx context.Context, date string) ([]plan.TrendCandidate, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", s.Path, err)
	}
	out := make([]plan.TrendCandidate, 0, len(seed.Candidates))
	for _, c := range seed.Candidates {
		if c.Title == "" {
			continue
		}
		out = append(out, plan.TrendCandidate{
			Title:        c.Title,
			SearchVolume: c.SearchVolume,
			Category:     c.Category,
		})
	}
	return out, nil
}
