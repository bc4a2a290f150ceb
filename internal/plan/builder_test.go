package plan

import (
	"context"
	"testing"
	"time"
)

type fakeLedger struct {
	processed map[string]time.Time
	window    time.Duration
	failWith  error
	marks     []string
}

var _ TopicLedger = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: map[string]time.Time{}, window: 48 * time.Hour}
}

func (f *fakeLedger) IsRecentlyProcessed(ctx context.Context, title string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	at, ok := f.processed[NormalizeTitle(title)]
	if !ok {
		return false, nil
	}
	return time.Since(at) < f.window, nil
}

func (f *fakeLedger) MarkProcessed(ctx context.Context, title string, now time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.processed[NormalizeTitle(title)] = now
	f.marks = append(f.marks, NormalizeTitle(title))
	return nil
}

func TestBuilderConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  BuilderConfig
		ok   bool
	}{
		{"valid", BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 20}, true},
		{"zero cap", BuilderConfig{MaxJobs: 0, StartHour: 8, EndHour: 20}, false},
		{"inverted window", BuilderConfig{MaxJobs: 5, StartHour: 20, EndHour: 8}, false},
		{"empty window", BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 8}, false},
		{"hour out of range", BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 25}, false},
		{"full day", BuilderConfig{MaxJobs: 5, StartHour: 0, EndHour: 24}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildDedupeRankAndSlots(t *testing.T) {
	ledger := newFakeLedger()
	b, err := NewBuilder(ledger, BuilderConfig{MaxJobs: 2, StartHour: 8, EndHour: 20})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	candidates := []TrendCandidate{
		{Title: "A", SearchVolume: 100},
		{Title: "B", SearchVolume: 50},
		{Title: "a", SearchVolume: 10},
	}
	p, err := b.Build(context.Background(), "2026-08-30", candidates, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(p.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(p.Jobs))
	}
	if p.Jobs[0].Trend.Title != "A" || p.Jobs[0].Position != 1 {
		t.Fatalf("job 1 = %+v, want A at position 1", p.Jobs[0])
	}
	if p.Jobs[1].Trend.Title != "B" || p.Jobs[1].Position != 2 {
		t.Fatalf("job 2 = %+v, want B at position 2", p.Jobs[1])
	}
	want0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	want1 := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	if !p.Jobs[0].ScheduledAt.Equal(want0) {
		t.Fatalf("slot 1 = %v, want %v", p.Jobs[0].ScheduledAt, want0)
	}
	if !p.Jobs[1].ScheduledAt.Equal(want1) {
		t.Fatalf("slot 2 = %v, want %v", p.Jobs[1].ScheduledAt, want1)
	}
	if p.IsRunning {
		t.Fatal("fresh plan marked running")
	}
	for _, j := range p.Jobs {
		if j.Status != StatusPending {
			t.Fatalf("job %s status %s, want pending", j.ID, j.Status)
		}
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuildKeepsHighestVolumeOnCollision(t *testing.T) {
	ledger := newFakeLedger()
	b, _ := NewBuilder(ledger, BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 20})

	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	candidates := []TrendCandidate{
		{Title: "solar eclipse", SearchVolume: 10},
		{Title: "Solar  Eclipse", SearchVolume: 90, Category: "science"},
	}
	p, err := b.Build(context.Background(), "2026-08-30", candidates, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(p.Jobs))
	}
	if p.Jobs[0].Trend.SearchVolume != 90 || p.Jobs[0].Trend.Category != "science" {
		t.Fatalf("kept %+v, want the 90-volume instance", p.Jobs[0].Trend)
	}
}

func TestBuildExcludesRecentlyProcessed(t *testing.T) {
	ledger := newFakeLedger()
	b, _ := NewBuilder(ledger, BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 20})
	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	first, err := b.Build(context.Background(), "2026-08-30", []TrendCandidate{{Title: "A", SearchVolume: 1}}, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(first.Jobs) != 1 {
		t.Fatalf("first build: %d jobs", len(first.Jobs))
	}

	// Topic reserved at build time, so a rebuild the same day skips it
	// even though no article was ever generated.
	second, err := b.Build(context.Background(), "2026-08-30", []TrendCandidate{{Title: " a ", SearchVolume: 1}}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(second.Jobs) != 0 {
		t.Fatalf("second build: %d jobs, want 0", len(second.Jobs))
	}
}

func TestBuildEmptyCandidatesIsValid(t *testing.T) {
	b, _ := NewBuilder(newFakeLedger(), BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 20})
	p, err := b.Build(context.Background(), "2026-08-30", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Jobs) != 0 {
		t.Fatalf("got %d jobs, want 0", len(p.Jobs))
	}
}

func TestBuildStableTieBreak(t *testing.T) {
	b, _ := NewBuilder(newFakeLedger(), BuilderConfig{MaxJobs: 5, StartHour: 8, EndHour: 20})
	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	candidates := []TrendCandidate{
		{Title: "first", SearchVolume: 40},
		{Title: "second", SearchVolume: 40},
		{Title: "third", SearchVolume: 40},
	}
	p, err := b.Build(context.Background(), "2026-08-30", candidates, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := []string{p.Jobs[0].Trend.Title, p.Jobs[1].Trend.Title, p.Jobs[2].Trend.Title}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order = %v, want %v", got, want)
		}
	}
}
