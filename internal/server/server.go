// Package server exposes the plan, article and topic APIs over HTTP and
// wires the whole system together for the serve command.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/trendpress/trendpress/config"
	"github.com/trendpress/trendpress/internal/dispatch"
	"github.com/trendpress/trendpress/internal/generator"
	"github.com/trendpress/trendpress/internal/ledger"
	"github.com/trendpress/trendpress/internal/plan"
	"github.com/trendpress/trendpress/internal/research"
	"github.com/trendpress/trendpress/internal/search"
	"github.com/trendpress/trendpress/internal/store"
	"github.com/trendpress/trendpress/internal/trends"
)

// NewEcho builds the router with the shared middleware stack and error
// handler. Handlers are registered by the caller.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Validator = newValidator()

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// Run wires storage, trends, research, generation, search and the
// dispatcher, registers the API routes and serves until the listener
// fails.
func Run(cfg *appconfig.Config) error {
	ctx := context.Background()

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("migrate: %v (continuing)", err)
	}

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	topics := ledger.NewRedisLedger(rdb, cfg.Ledger.Window)

	builder, err := plan.NewBuilder(topics, plan.BuilderConfig{
		MaxJobs:   cfg.Planner.MaxJobs,
		StartHour: cfg.Planner.StartHour,
		EndHour:   cfg.Planner.EndHour,
	})
	if err != nil {
		return err
	}

	source, err := trends.NewSource(trends.Config{
		Provider: cfg.Trends.Provider,
		Geo:      cfg.Trends.Geo,
		Endpoint: cfg.Trends.Endpoint,
		SeedFile: cfg.Trends.SeedFile,
		Timeout:  cfg.Trends.Timeout,
	})
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

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return err
	}

	disp := dispatch.New(st, source, builder, gen, dispatch.Config{
		TickInterval:    cfg.Scheduler.TickInterval,
		DispatchTimeout: cfg.Scheduler.DispatchTimeout,
		StaleAfter:      cfg.Scheduler.StaleAfter,
		LockTTL:         cfg.Scheduler.LockTTL,
		BuildCron:       cfg.Planner.BuildCron,
	}, nil)
	disp.Rdb = rdb
	disp.Index = idx
	if cfg.Research.Enabled {
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
		disp.Research = res
	}
	disp.Start()
	defer disp.Stop()

	e := NewEcho()
	api := e.Group("/api")

	ph := &PlansHandler{Store: st, Source: source, Builder: builder, Ticker: disp}
	ph.Register(api.Group("/plans"))

	ah := &ArticlesHandler{Store: st, Search: idx}
	ah.Register(api.Group("/articles"))

	th := &TopicsHandler{Ledger: topics}
	th.Register(api.Group("/topics"))

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10010"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
