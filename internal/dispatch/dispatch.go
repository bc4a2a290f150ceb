// Package dispatch drives daily plans: it lazily builds today's plan
// and advances at most one due job per tick through the job state
// machine, calling the article generator in between.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/trendpress/trendpress/internal/generator"
	"github.com/trendpress/trendpress/internal/plan"
	"github.com/trendpress/trendpress/internal/research"
	"github.com/trendpress/trendpress/internal/store"
	"github.com/trendpress/trendpress/internal/trends"
)

// PlanStore is the slice of the storage layer the dispatcher needs.
type PlanStore interface {
	LoadPlan(ctx context.Context, date string) (*plan.DailyPlan, error)
	SavePlan(ctx context.Context, p plan.DailyPlan, replace bool) error
	UpdateJob(ctx context.Context, date string, j plan.Job, now time.Time) error
	AcquireDispatch(ctx context.Context, date string, now time.Time, staleAfter time.Duration) (bool, error)
	ReleaseDispatch(ctx context.Context, date string, now time.Time) error
	InsertArticle(ctx context.Context, rec store.ArticleRecord) error
}

// Indexer receives completed articles for full-text search.
type Indexer interface {
	IndexArticle(rec store.ArticleRecord) error
}

// Config tunes the dispatch loop.
type Config struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"` // per-generation budget
	StaleAfter      time.Duration `mapstructure:"stale_after"`      // dead-lock reclaim horizon
	LockTTL         time.Duration `mapstructure:"lock_ttl"`         // redis short-circuit TTL
	BuildCron       string        `mapstructure:"build_cron"`       // earliest daily build time
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Minute
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 5 * time.Minute
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 15 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
	if c.BuildCron == "" {
		c.BuildCron = "@daily"
	}
	return c
}

// Dispatcher owns job state transitions within a plan. The durable CAS
// on the plan row is the at-most-once guarantee; the optional redis
// lock only short-circuits concurrent ticks cheaply.
type Dispatcher struct {
	Store     PlanStore
	Source    trends.Source
	Builder   *plan.Builder
	Generator generator.Generator
	Research  *research.Researcher // nil disables grounding
	Index     Indexer              // nil disables search indexing
	Rdb       *redis.Client        // nil disables the redis short-circuit
	Logger    *log.Logger

	Cfg  Config
	stop chan struct{}
}

func New(st PlanStore, source trends.Source, builder *plan.Builder, gen generator.Generator, cfg Config, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[DISPATCH] ", log.LstdFlags)
	}
	return &Dispatcher{
		Store:     st,
		Source:    source,
		Builder:   builder,
		Generator: gen,
		Cfg:       cfg.withDefaults(),
		Logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start runs the periodic tick loop until Stop is called. The loop
// itself holds no state; all work happens inside Tick so tests can
// drive it with synthetic clocks.
func (d *Dispatcher) Start() {
	ticker := time.NewTicker(d.Cfg.TickInterval)
	go func() {
		for {
			select {
			case <-d.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if err := d.Tick(context.Background(), time.Now().UTC()); err != nil {
					d.Logger.Printf("tick error: %v", err)
				}
			}
		}
	}()
}

func (d *Dispatcher) Stop() { close(d.stop) }

// Tick advances at most one due job. Idempotent per invocation and a
// no-op when nothing is due. Storage errors abort the tick (the next
// tick retries); a generation failure is terminal for its job only.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) error {
	started := time.Now()
	defer func() { tickDuration.Observe(time.Since(started).Seconds()) }()

	date := now.UTC().Format("2006-01-02")

	if d.Rdb != nil {
		lockKey := "dispatch:lock:" + date
		ok, err := d.Rdb.SetNX(ctx, lockKey, "1", d.Cfg.LockTTL).Result()
		if err != nil {
			d.Logger.Printf("redis lock unavailable, relying on store CAS: %v", err)
		} else if !ok {
			return nil
		} else {
			defer d.Rdb.Del(ctx, lockKey)
		}
	}

	p, err := d.ensurePlan(ctx, date, now)
	if err != nil {
		return err
	}
	if p == nil || p.NextDue(now) == nil {
		return nil
	}

	acquired, err := d.Store.AcquireDispatch(ctx, date, now, d.Cfg.StaleAfter)
	if err != nil {
		return fmt.Errorf("acquire dispatch: %w", err)
	}
	if !acquired {
		return nil
	}
	// The lock is held from here; clear it on every exit after the
	// terminal persist (or the abort).
	release := func() {
		if err := d.Store.ReleaseDispatch(ctx, date, time.Now().UTC()); err != nil {
			d.Logger.Printf("release dispatch %s: %v", date, err)
		}
	}

	// Re-read under the lock: another process may have advanced the
	// plan between the scan and the acquisition.
	p, err = d.Store.LoadPlan(ctx, date)
	if err != nil {
		release()
		return fmt.Errorf("reload plan: %w", err)
	}
	job := (*plan.Job)(nil)
	if p != nil {
		job = p.NextDue(now)
	}
	if job == nil {
		release()
		return nil
	}

	if err := job.Dispatch(now); err != nil {
		release()
		return fmt.Errorf("dispatch job %s: %w", job.ID, err)
	}
	if err := d.Store.UpdateJob(ctx, date, *job, now); err != nil {
		release()
		return fmt.Errorf("persist dispatch of %s: %w", job.ID, err)
	}
	jobsDispatched.Inc()
	d.Logger.Printf("dispatching job %d/%d %q", job.Position, len(p.Jobs), job.Trend.Title)

	article, genErr := d.generate(ctx, date, job)
	finished := time.Now().UTC()

	if genErr != nil {
		if err := job.Fail(finished, genErr.Error()); err != nil {
			release()
			return fmt.Errorf("fail job %s: %w", job.ID, err)
		}
		if err := d.Store.UpdateJob(ctx, date, *job, finished); err != nil {
			release()
			return fmt.Errorf("persist failure of %s: %w", job.ID, err)
		}
		jobsFailed.Inc()
		d.Logger.Printf("job %q failed: %v", job.Trend.Title, genErr)
		release()
		return nil
	}

	rec := store.ArticleRecord{
		ID:           uuid.NewString(),
		PlanDate:     date,
		JobID:        job.ID,
		Title:        article.Title,
		Topic:        job.Trend.Title,
		Category:     job.Trend.Category,
		Model:        article.Model,
		BodyMarkdown: article.BodyMarkdown,
		Summary:      article.Summary,
		TokensUsed:   article.TokensUsed,
		CreatedAt:    finished,
	}
	if err := d.Store.InsertArticle(ctx, rec); err != nil {
		release()
		return fmt.Errorf("store article for %s: %w", job.ID, err)
	}
	if err := job.Complete(finished, rec.ID); err != nil {
		release()
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	if err := d.Store.UpdateJob(ctx, date, *job, finished); err != nil {
		release()
		return fmt.Errorf("persist completion of %s: %w", job.ID, err)
	}
	jobsCompleted.Inc()

	if d.Index != nil {
		if err := d.Index.IndexArticle(rec); err != nil {
			// Search is rebuildable; the job outcome stands.
			d.Logger.Printf("index article %s: %v", rec.ID, err)
		}
	}
	d.Logger.Printf("job %q completed, article %s", job.Trend.Title, rec.ID)
	release()
	return nil
}

// generate runs research (best effort) and the generator under the
// per-job timeout. A timeout surfaces as a generation failure.
func (d *Dispatcher) generate(ctx context.Context, date string, job *plan.Job) (generator.Article, error) {
	gctx, cancel := context.WithTimeout(ctx, d.Cfg.DispatchTimeout)
	defer cancel()

	digest := ""
	if d.Research != nil {
		var err error
		digest, err = d.Research.Digest(gctx, job.Trend)
		if err != nil {
			d.Logger.Printf("research for %q failed, generating ungrounded: %v", job.Trend.Title, err)
			digest = ""
		}
	}
	return d.Generator.Generate(gctx, generator.Request{
		Trend:          job.Trend,
		PlanDate:       date,
		ResearchDigest: digest,
	})
}

// ensurePlan loads the plan for date, building and saving it when
// absent and the build schedule allows. Returns nil when there is no
// plan yet and it is not time to build one.
func (d *Dispatcher) ensurePlan(ctx context.Context, date string, now time.Time) (*plan.DailyPlan, error) {
	p, err := d.Store.LoadPlan(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if p != nil {
		return p, nil
	}
	if d.Source == nil || d.Builder == nil {
		return nil, nil
	}
	if !buildDue(d.Cfg.BuildCron, date, now) {
		return nil, nil
	}

	candidates, err := d.Source.FetchCandidates(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	built, err := d.Builder.Build(ctx, date, candidates, now)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}
	if err := d.Store.SavePlan(ctx, built, false); err != nil {
		if errors.Is(err, store.ErrPlanExists) {
			// Lost the build race; the stored plan wins.
			return d.Store.LoadPlan(ctx, date)
		}
		return nil, fmt.Errorf("save plan: %w", err)
	}
	d.Logger.Printf("built plan for %s with %d jobs", date, len(built.Jobs))
	return &built, nil
}
