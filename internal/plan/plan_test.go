package plan

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Solar Eclipse", "solar eclipse"},
		{"  solar   ECLIPSE  ", "solar eclipse"},
		{"\tAI\nnews", "ai news"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJobTransitionsForwardOnly(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	j := Job{ID: "j1", Status: StatusPending, ScheduledAt: now.Add(-time.Minute)}

	if err := j.Complete(now, "a1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Complete from pending: got %v, want ErrInvalidTransition", err)
	}
	if err := j.Fail(now, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fail from pending: got %v, want ErrInvalidTransition", err)
	}

	if err := j.Dispatch(now); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if j.Status != StatusGenerating {
		t.Fatalf("status = %s, want generating", j.Status)
	}
	if err := j.Dispatch(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Dispatch: got %v, want ErrInvalidTransition", err)
	}

	if err := j.Complete(now, "a1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if j.CompletedAt == nil || !j.CompletedAt.Equal(now) {
		t.Fatalf("CompletedAt = %v, want %v", j.CompletedAt, now)
	}
	if j.ArticleID != "a1" || j.Error != "" {
		t.Fatalf("completed job: article=%q error=%q", j.ArticleID, j.Error)
	}

	// Terminal states are immutable.
	if err := j.Dispatch(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Dispatch from completed: got %v", err)
	}
	if err := j.Fail(now, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fail from completed: got %v", err)
	}
}

func TestJobDispatchNotDue(t *testing.T) {
	now := time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)
	j := Job{ID: "j1", Status: StatusPending, ScheduledAt: now.Add(time.Hour)}
	if err := j.Dispatch(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Dispatch before scheduled time: got %v, want ErrInvalidTransition", err)
	}
	if j.Status != StatusPending {
		t.Fatalf("status changed to %s", j.Status)
	}
}

func TestJobFailRecordsError(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	j := Job{ID: "j1", Status: StatusGenerating}
	if err := j.Fail(now, "generator exploded"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if j.Error != "generator exploded" || j.ArticleID != "" {
		t.Fatalf("failed job: article=%q error=%q", j.ArticleID, j.Error)
	}
	if j.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}

	j2 := Job{ID: "j2", Status: StatusGenerating}
	if err := j2.Fail(now, "  "); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if j2.Error == "" {
		t.Fatal("blank failure message not defaulted")
	}
}

func TestNextDue(t *testing.T) {
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	p := DailyPlan{
		Date: "2026-08-30",
		Jobs: []Job{
			{ID: "j1", Position: 1, Status: StatusCompleted, ScheduledAt: base.Add(8 * time.Hour)},
			{ID: "j2", Position: 2, Status: StatusPending, ScheduledAt: base.Add(12 * time.Hour)},
			{ID: "j3", Position: 3, Status: StatusPending, ScheduledAt: base.Add(16 * time.Hour)},
		},
	}

	if j := p.NextDue(base.Add(9 * time.Hour)); j != nil {
		t.Fatalf("NextDue at 09:00 = %s, want nil", j.ID)
	}
	if j := p.NextDue(base.Add(13 * time.Hour)); j == nil || j.ID != "j2" {
		t.Fatalf("NextDue at 13:00 = %v, want j2", j)
	}
	// Lateness is tolerated: both overdue, earliest position wins.
	if j := p.NextDue(base.Add(23 * time.Hour)); j == nil || j.ID != "j2" {
		t.Fatalf("NextDue at 23:00 = %v, want j2", j)
	}
}

func TestPlanValidate(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	good := DailyPlan{
		Date: "2026-08-30",
		Jobs: []Job{
			{ID: "j1", Position: 1, Trend: TrendCandidate{Title: "A"}, ScheduledAt: base},
			{ID: "j2", Position: 2, Trend: TrendCandidate{Title: "B"}, ScheduledAt: base.Add(time.Hour)},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dupTitle := good
	dupTitle.Jobs = []Job{
		{ID: "j1", Position: 1, Trend: TrendCandidate{Title: "A"}, ScheduledAt: base},
		{ID: "j2", Position: 2, Trend: TrendCandidate{Title: " a "}, ScheduledAt: base.Add(time.Hour)},
	}
	if err := dupTitle.Validate(); err == nil {
		t.Fatal("duplicate normalized title accepted")
	}

	gap := good
	gap.Jobs = []Job{
		{ID: "j1", Position: 1, Trend: TrendCandidate{Title: "A"}, ScheduledAt: base},
		{ID: "j2", Position: 3, Trend: TrendCandidate{Title: "B"}, ScheduledAt: base.Add(time.Hour)},
	}
	if err := gap.Validate(); err == nil {
		t.Fatal("position gap accepted")
	}

	unordered := good
	unordered.Jobs = []Job{
		{ID: "j1", Position: 1, Trend: TrendCandidate{Title: "A"}, ScheduledAt: base.Add(time.Hour)},
		{ID: "j2", Position: 2, Trend: TrendCandidate{Title: "B"}, ScheduledAt: base},
	}
	if err := unordered.Validate(); err == nil {
		t.Fatal("non-increasing schedule accepted")
	}

	badDate := good
	badDate.Date = "30-08-2026"
	if err := badDate.Validate(); err == nil {
		t.Fatal("bad date accepted")
	}
}
