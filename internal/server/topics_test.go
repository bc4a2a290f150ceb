package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type recordingLedger struct {
	marked []string
	err    error
}

func (r *recordingLedger) IsRecentlyProcessed(ctx context.Context, title string) (bool, error) {
	return false, nil
}

func (r *recordingLedger) MarkProcessed(ctx context.Context, title string, now time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.marked = append(r.marked, title)
	return nil
}

func TestTopicsMarkProcessed(t *testing.T) {
	lg := &recordingLedger{}
	h := &TopicsHandler{Ledger: lg}

	c, rec := newTestContext(t, http.MethodPost, "/api/topics/processed", `{"title":"Solar Eclipse"}`)
	if err := h.markProcessed(c); err != nil {
		t.Fatalf("markProcessed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(lg.marked) != 1 || lg.marked[0] != "Solar Eclipse" {
		t.Fatalf("marked = %v", lg.marked)
	}
}

func TestTopicsMarkProcessedRequiresTitle(t *testing.T) {
	h := &TopicsHandler{Ledger: &recordingLedger{}}

	c, _ := newTestContext(t, http.MethodPost, "/api/topics/processed", `{}`)
	err := h.markProcessed(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}
