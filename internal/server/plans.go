package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trendpress/trendpress/internal/plan"
	"github.com/trendpress/trendpress/internal/store"
	"github.com/trendpress/trendpress/internal/trends"
)

// PlanStore is the slice of the storage layer the plan handlers need.
type PlanStore interface {
	LoadPlan(ctx context.Context, date string) (*plan.DailyPlan, error)
	SavePlan(ctx context.Context, p plan.DailyPlan, replace bool) error
}

// Ticker runs one dispatch pass on demand.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// PlansHandler serves plan lookup, on-demand builds and manual ticks.
type PlansHandler struct {
	Store   PlanStore
	Source  trends.Source
	Builder *plan.Builder
	Ticker  Ticker
}

func (h *PlansHandler) Register(g *echo.Group) {
	g.GET("/:date", h.get)
	g.POST("/build", h.build)
	g.POST("/tick", h.tick)
}

func (h *PlansHandler) get(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	p, err := h.Store.LoadPlan(c.Request().Context(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no plan for "+date)
	}
	return c.JSON(http.StatusOK, p)
}

type buildRequest struct {
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Force bool   `json:"force"`
}

// build creates and stores the plan for a date. An existing plan is only
// overwritten when force is set; otherwise the request conflicts.
func (h *PlansHandler) build(c echo.Context) error {
	var req buildRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	now := time.Now().UTC()
	if req.Date == "" {
		req.Date = now.Format("2006-01-02")
	}

	ctx := c.Request().Context()
	candidates, err := h.Source.FetchCandidates(ctx, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "fetch candidates: "+err.Error())
	}
	built, err := h.Builder.Build(ctx, req.Date, candidates, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.SavePlan(ctx, built, req.Force); err != nil {
		if errors.Is(err, store.ErrPlanExists) {
			return echo.NewHTTPError(http.StatusConflict, "plan exists for "+req.Date+"; pass force to overwrite")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, built)
}

func (h *PlansHandler) tick(c echo.Context) error {
	if err := h.Ticker.Tick(c.Request().Context(), time.Now().UTC()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
