package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trendpress/trendpress/internal/search"
	"github.com/trendpress/trendpress/internal/store"
)

// ArticleStore is the slice of the storage layer the article handlers
// need.
type ArticleStore interface {
	ListArticles(ctx context.Context, f store.ArticleFilter) ([]store.ArticleRecord, error)
	GetArticle(ctx context.Context, id string) (store.ArticleRecord, bool, error)
}

// Searcher answers full-text queries over indexed articles.
type Searcher interface {
	Search(query string, limit int) ([]search.Hit, error)
}

// ArticlesHandler serves generated articles and full-text search.
type ArticlesHandler struct {
	Store  ArticleStore
	Search Searcher // nil disables /search
}

func (h *ArticlesHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
}

func (h *ArticlesHandler) list(c echo.Context) error {
	f := store.ArticleFilter{
		PlanDate: c.QueryParam("plan_date"),
		Category: c.QueryParam("category"),
	}
	if f.PlanDate != "" {
		if _, err := time.Parse("2006-01-02", f.PlanDate); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "plan_date must be YYYY-MM-DD")
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		f.Limit = n
	}
	items, err := h.Store.ListArticles(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.ArticleRecord{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ArticlesHandler) get(c echo.Context) error {
	rec, found, err := h.Store.GetArticle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *ArticlesHandler) search(c echo.Context) error {
	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	hits, err := h.Search.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"query": q, "hits": hits})
}
