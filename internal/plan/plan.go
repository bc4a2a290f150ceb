package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus tracks a job through its lifecycle. Transitions only move
// forward: pending -> generating -> {completed, failed}.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ErrInvalidTransition is returned when a job is asked to make a state
// change its current status does not allow.
var ErrInvalidTransition = errors.New("invalid job transition")

// TrendCandidate is a topic proposed by a trend source as a subject for
// article generation. Candidates are ephemeral planner input and are not
// persisted by this package.
type TrendCandidate struct {
	Title        string `json:"title"`
	SearchVolume int    `json:"search_volume"`
	Category     string `json:"category,omitempty"`
}

// Job is one scheduled article-generation unit inside a DailyPlan.
type Job struct {
	ID          string         `json:"id"`
	Position    int            `json:"position"`
	Trend       TrendCandidate `json:"trend"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Status      JobStatus      `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	ArticleID   string         `json:"article_id,omitempty"`
}

// Dispatch moves a pending job to generating. It refuses jobs that are
// not pending or whose scheduled time has not arrived yet.
func (j *Job) Dispatch(now time.Time) error {
	if j.Status != StatusPending {
		return fmt.Errorf("%w: dispatch from %s", ErrInvalidTransition, j.Status)
	}
	if now.Before(j.ScheduledAt) {
		return fmt.Errorf("%w: job %s not due until %s", ErrInvalidTransition, j.ID, j.ScheduledAt.Format(time.RFC3339))
	}
	j.Status = StatusGenerating
	return nil
}

// Complete moves a generating job to completed and records the article.
// CompletedAt is set exactly once, here or in Fail.
func (j *Job) Complete(now time.Time, articleID string) error {
	if j.Status != StatusGenerating {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, j.Status)
	}
	if articleID == "" {
		return fmt.Errorf("%w: completed job requires an article", ErrInvalidTransition)
	}
	j.Status = StatusCompleted
	j.ArticleID = articleID
	j.Error = ""
	t := now
	j.CompletedAt = &t
	return nil
}

// Fail moves a generating job to failed, recording the error message.
func (j *Job) Fail(now time.Time, msg string) error {
	if j.Status != StatusGenerating {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, j.Status)
	}
	if strings.TrimSpace(msg) == "" {
		msg = "generation failed"
	}
	j.Status = StatusFailed
	j.Error = msg
	j.ArticleID = ""
	t := now
	j.CompletedAt = &t
	return nil
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// DailyPlan is the bounded, ordered set of generation jobs for one date.
type DailyPlan struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	Jobs      []Job     `json:"jobs"` // ordered by Position
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsRunning bool      `json:"is_running"`
}

// NextDue returns the first pending job, in position order, whose
// scheduled time has passed. Nil when nothing is due.
func (p *DailyPlan) NextDue(now time.Time) *Job {
	for i := range p.Jobs {
		j := &p.Jobs[i]
		if j.Status == StatusPending && !j.ScheduledAt.After(now) {
			return j
		}
	}
	return nil
}

// JobByID returns the job with the given id, or nil.
func (p *DailyPlan) JobByID(id string) *Job {
	for i := range p.Jobs {
		if p.Jobs[i].ID == id {
			return &p.Jobs[i]
		}
	}
	return nil
}

// Validate checks the structural invariants of a plan: dense 1..N
// positions, strictly increasing schedule times and pairwise distinct
// normalized titles.
func (p *DailyPlan) Validate() error {
	if _, err := time.Parse("2006-01-02", p.Date); err != nil {
		return fmt.Errorf("invalid plan date %q: %w", p.Date, err)
	}
	seen := make(map[string]struct{}, len(p.Jobs))
	for i := range p.Jobs {
		j := &p.Jobs[i]
		if j.Position != i+1 {
			return fmt.Errorf("job %s: position %d, want %d", j.ID, j.Position, i+1)
		}
		if i > 0 && !p.Jobs[i-1].ScheduledAt.Before(j.ScheduledAt) {
			return fmt.Errorf("job %s: scheduled_at not increasing at position %d", j.ID, j.Position)
		}
		key := NormalizeTitle(j.Trend.Title)
		if key == "" {
			return fmt.Errorf("job %s: empty trend title", j.ID)
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate trend %q in plan %s", key, p.Date)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// NormalizeTitle folds case and whitespace so that "Solar  Eclipse" and
// "solar eclipse" map to the same dedup key.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
