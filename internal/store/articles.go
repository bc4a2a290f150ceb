package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ArticleRecord is a generated article as stored in Postgres.
type ArticleRecord struct {
	ID           string    `json:"id"`
	PlanDate     string    `json:"plan_date"`
	JobID        string    `json:"job_id"`
	Title        string    `json:"title"`
	Topic        string    `json:"topic"`
	Category     string    `json:"category,omitempty"`
	Model        string    `json:"model,omitempty"`
	BodyMarkdown string    `json:"body_markdown"`
	Summary      string    `json:"summary,omitempty"`
	TokensUsed   int       `json:"tokens_used,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ArticleFilter narrows ListArticles. Zero values mean "no constraint".
type ArticleFilter struct {
	PlanDate string
	Category string
	From     time.Time
	To       time.Time
	Limit    uint64
}

func (s *Store) InsertArticle(ctx context.Context, rec ArticleRecord) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO articles (id, plan_date, job_id, title, topic, category, model, body_markdown, summary, tokens_used, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.PlanDate, nullString(rec.JobID), rec.Title, rec.Topic, nullString(rec.Category),
		nullString(rec.Model), rec.BodyMarkdown, nullString(rec.Summary), rec.TokensUsed, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert article %s: %w", rec.ID, err)
	}
	return nil
}

// GetArticle returns the article and whether it exists.
func (s *Store) GetArticle(ctx context.Context, id string) (ArticleRecord, bool, error) {
	var (
		rec                             ArticleRecord
		jobID, category, model, summary sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, to_char(plan_date, 'YYYY-MM-DD'), job_id, title, topic, category, model, body_markdown, summary, tokens_used, created_at
FROM articles WHERE id = $1`, id).
		Scan(&rec.ID, &rec.PlanDate, &jobID, &rec.Title, &rec.Topic, &category, &model,
			&rec.BodyMarkdown, &summary, &rec.TokensUsed, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ArticleRecord{}, false, nil
	}
	if err != nil {
		return ArticleRecord{}, false, fmt.Errorf("get article %s: %w", id, err)
	}
	rec.JobID = jobID.String
	rec.Category = category.String
	rec.Model = model.String
	rec.Summary = summary.String
	return rec, true, nil
}

func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]ArticleRecord, error) {
	qb := sq.Select("id", "to_char(plan_date, 'YYYY-MM-DD')", "job_id", "title", "topic", "category", "model",
		"body_markdown", "summary", "tokens_used", "created_at").
		From("articles").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if f.PlanDate != "" {
		qb = qb.Where(sq.Eq{"plan_date": f.PlanDate})
	}
	if f.Category != "" {
		qb = qb.Where(sq.Eq{"category": f.Category})
	}
	if !f.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		qb = qb.Where(sq.Lt{"created_at": f.To})
	}
	if f.Limit > 0 {
		qb = qb.Limit(f.Limit)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []ArticleRecord
	for rows.Next() {
		var (
			rec                             ArticleRecord
			jobID, category, model, summary sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.PlanDate, &jobID, &rec.Title, &rec.Topic,
			&category, &model, &rec.BodyMarkdown, &summary, &rec.TokensUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		rec.JobID = jobID.String
		rec.Category = category.String
		rec.Model = model.String
		rec.Summary = summary.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}
