package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trendpress/trendpress/internal/plan"
)

// TopicsHandler exposes the processed-topic ledger for manual overrides:
// marking a topic processed keeps it out of upcoming plans for the
// ledger window.
type TopicsHandler struct {
	Ledger plan.TopicLedger
}

func (h *TopicsHandler) Register(g *echo.Group) {
	g.POST("/processed", h.markProcessed)
}

type markProcessedRequest struct {
	Title string `json:"title" validate:"required"`
}

func (h *TopicsHandler) markProcessed(c echo.Context) error {
	var req markProcessedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Ledger.MarkProcessed(c.Request().Context(), req.Title, time.Now().UTC()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"title":  req.Title,
		"status": "processed",
	})
}
