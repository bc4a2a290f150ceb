package plan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TopicLedger records which topics were recently turned into jobs so a
// topic is not offered again within the rolling dedup window.
type TopicLedger interface {
	IsRecentlyProcessed(ctx context.Context, title string) (bool, error)
	MarkProcessed(ctx context.Context, title string, now time.Time) error
}

// BuilderConfig bounds the daily plan: at most MaxJobs jobs, spread
// evenly across the [StartHour, EndHour) window of the plan date (UTC).
type BuilderConfig struct {
	MaxJobs   int `mapstructure:"max_jobs"`
	StartHour int `mapstructure:"start_hour"`
	EndHour   int `mapstructure:"end_hour"`
}

func (c BuilderConfig) Validate() error {
	if c.MaxJobs < 1 {
		return fmt.Errorf("planner.max_jobs must be >= 1, got %d", c.MaxJobs)
	}
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return fmt.Errorf("planner window [%d,%d) is invalid", c.StartHour, c.EndHour)
	}
	return nil
}

// Builder turns a day's trend candidates into a DailyPlan. The builder
// itself is pure aside from ledger lookups and reservations; whether an
// existing stored plan gets replaced is the caller's decision.
type Builder struct {
	Ledger TopicLedger
	Cfg    BuilderConfig
}

func NewBuilder(ledger TopicLedger, cfg BuilderConfig) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{Ledger: ledger, Cfg: cfg}, nil
}

// Build produces the deduplicated, ranked, time-sliced plan for date
// (YYYY-MM-DD). Selected topics are marked processed immediately so they
// are not offered again within the ledger window regardless of how
// generation turns out. An empty candidate set yields a valid zero-job
// plan.
func (b *Builder) Build(ctx context.Context, date string, candidates []TrendCandidate, now time.Time) (DailyPlan, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return DailyPlan{}, fmt.Errorf("invalid plan date %q: %w", date, err)
	}

	// Filter out recently processed topics, then dedupe the survivors by
	// normalized title keeping the highest search volume. The dedup set
	// is structural: the trend source's own uniqueness is not trusted.
	type ranked struct {
		cand TrendCandidate
		ord  int
	}
	best := make(map[string]ranked)
	order := make([]string, 0, len(candidates))
	for i, c := range candidates {
		key := NormalizeTitle(c.Title)
		if key == "" {
			continue
		}
		recent, err := b.Ledger.IsRecentlyProcessed(ctx, c.Title)
		if err != nil {
			return DailyPlan{}, fmt.Errorf("ledger lookup for %q: %w", c.Title, err)
		}
		if recent {
			continue
		}
		prev, ok := best[key]
		if !ok {
			best[key] = ranked{cand: c, ord: i}
			order = append(order, key)
			continue
		}
		if c.SearchVolume > prev.cand.SearchVolume {
			best[key] = ranked{cand: c, ord: prev.ord}
		}
	}

	selected := make([]ranked, 0, len(order))
	for _, key := range order {
		selected = append(selected, best[key])
	}
	// Volume descending; original candidate order breaks ties so the
	// build is deterministic for identical inputs.
	sort.SliceStable(selected, func(i, k int) bool {
		return selected[i].cand.SearchVolume > selected[k].cand.SearchVolume
	})
	if len(selected) > b.Cfg.MaxJobs {
		selected = selected[:b.Cfg.MaxJobs]
	}

	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	window := time.Duration(b.Cfg.EndHour-b.Cfg.StartHour) * time.Hour
	jobs := make([]Job, 0, len(selected))
	for i, s := range selected {
		var slot time.Duration
		if n := len(selected); n > 0 {
			slot = window / time.Duration(n)
		}
		jobs = append(jobs, Job{
			ID:          uuid.NewString(),
			Position:    i + 1,
			Trend:       s.cand,
			ScheduledAt: startOfDay.Add(time.Duration(b.Cfg.StartHour)*time.Hour + time.Duration(i)*slot),
			Status:      StatusPending,
			CreatedAt:   now,
		})
		if err := b.Ledger.MarkProcessed(ctx, s.cand.Title, now); err != nil {
			return DailyPlan{}, fmt.Errorf("mark %q processed: %w", s.cand.Title, err)
		}
	}

	p := DailyPlan{
		Date:      date,
		Jobs:      jobs,
		CreatedAt: now,
		UpdatedAt: now,
		IsRunning: false,
	}
	if err := p.Validate(); err != nil {
		return DailyPlan{}, err
	}
	return p, nil
}
