// Package store persists daily plans and generated articles in Postgres.
// Plain SQL over lib/pq; dynamic filters are built with squirrel.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/trendpress/trendpress/internal/plan"
)

// ErrPlanExists is returned by SavePlan when a plan for the date is
// already stored and replace was not requested.
var ErrPlanExists = errors.New("plan already exists for date")

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// SavePlan stores a plan and its full job set. With replace false the
// save fails with ErrPlanExists when the date already has a plan; with
// replace true the previous jobs are dropped and rewritten.
func (s *Store) SavePlan(ctx context.Context, p plan.DailyPlan, replace bool) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save plan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if !replace {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM daily_plans WHERE plan_date = $1)`, p.Date).Scan(&exists); err != nil {
			return fmt.Errorf("check plan %s: %w", p.Date, err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrPlanExists, p.Date)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO daily_plans (plan_date, is_running, created_at, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (plan_date) DO UPDATE SET
  is_running = EXCLUDED.is_running,
  updated_at = EXCLUDED.updated_at`,
		p.Date, p.IsRunning, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", p.Date, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_jobs WHERE plan_date = $1`, p.Date); err != nil {
		return fmt.Errorf("clear jobs for %s: %w", p.Date, err)
	}
	for _, j := range p.Jobs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO plan_jobs (id, plan_date, position, title, normalized_title, search_volume, category,
                       scheduled_at, status, error, article_id, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			j.ID, p.Date, j.Position, j.Trend.Title, plan.NormalizeTitle(j.Trend.Title),
			j.Trend.SearchVolume, nullString(j.Trend.Category), j.ScheduledAt, string(j.Status),
			nullString(j.Error), nullString(j.ArticleID), j.CreatedAt, nullTime(j.CompletedAt))
		if err != nil {
			return fmt.Errorf("insert job %s: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan %s: %w", p.Date, err)
	}
	return nil
}

// LoadPlan returns the stored plan for date, or nil when none exists.
func (s *Store) LoadPlan(ctx context.Context, date string) (*plan.DailyPlan, error) {
	var p plan.DailyPlan
	err := s.DB.QueryRowContext(ctx, `
SELECT to_char(plan_date, 'YYYY-MM-DD'), is_running, created_at, updated_at
FROM daily_plans WHERE plan_date = $1`, date).
		Scan(&p.Date, &p.IsRunning, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", date, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT id, position, title, search_volume, category, scheduled_at, status, error, article_id, created_at, completed_at
FROM plan_jobs WHERE plan_date = $1 ORDER BY position`, date)
	if err != nil {
		return nil, fmt.Errorf("load jobs for %s: %w", date, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			j                      plan.Job
			category, errMsg, artID sql.NullString
			completedAt            sql.NullTime
			status                 string
		)
		if err := rows.Scan(&j.ID, &j.Position, &j.Trend.Title, &j.Trend.SearchVolume, &category,
			&j.ScheduledAt, &status, &errMsg, &artID, &j.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = plan.JobStatus(status)
		j.Trend.Category = category.String
		j.Error = errMsg.String
		j.ArticleID = artID.String
		if completedAt.Valid {
			t := completedAt.Time
			j.CompletedAt = &t
		}
		p.Jobs = append(p.Jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs for %s: %w", date, err)
	}
	return &p, nil
}

// UpdateJob persists one job's state transition and touches the plan's
// updated_at so the dispatch staleness clock restarts.
func (s *Store) UpdateJob(ctx context.Context, date string, j plan.Job, now time.Time) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update job: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE plan_jobs SET status = $1, error = $2, article_id = $3, completed_at = $4
WHERE id = $5 AND plan_date = $6`,
		string(j.Status), nullString(j.Error), nullString(j.ArticleID), nullTime(j.CompletedAt), j.ID, date)
	if err != nil {
		return fmt.Errorf("update job %s: %w", j.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not found in plan %s", j.ID, date)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE daily_plans SET updated_at = $1 WHERE plan_date = $2`, now, date); err != nil {
		return fmt.Errorf("touch plan %s: %w", date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit job %s: %w", j.ID, err)
	}
	return nil
}

// AcquireDispatch takes the plan's dispatch lock with a single
// compare-and-set statement. Two overlapping ticks can never both see
// rows-affected 1, which is what makes dispatch at-most-once. A lock
// left behind by a dead process is reclaimable once updated_at is older
// than staleAfter.
func (s *Store) AcquireDispatch(ctx context.Context, date string, now time.Time, staleAfter time.Duration) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE daily_plans SET is_running = TRUE, updated_at = $1
WHERE plan_date = $2 AND (is_running = FALSE OR updated_at < $3)`,
		now, date, now.Add(-staleAfter))
	if err != nil {
		return false, fmt.Errorf("acquire dispatch %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire dispatch %s: %w", date, err)
	}
	return n == 1, nil
}

// ReleaseDispatch clears the dispatch lock after the terminal state of
// the current job has been persisted.
func (s *Store) ReleaseDispatch(ctx context.Context, date string, now time.Time) error {
	if _, err := s.DB.ExecContext(ctx, `
UPDATE daily_plans SET is_running = FALSE, updated_at = $1 WHERE plan_date = $2`, now, date); err != nil {
		return fmt.Errorf("release dispatch %s: %w", date, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
