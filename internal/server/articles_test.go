package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trendpress/trendpress/internal/search"
	"github.com/trendpress/trendpress/internal/store"
)

type stubArticleStore struct {
	articles []store.ArticleRecord
	filter   store.ArticleFilter
	err      error
}

var _ ArticleStore = (*stubArticleStore)(nil)

func (s *stubArticleStore) ListArticles(ctx context.Context, f store.ArticleFilter) ([]store.ArticleRecord, error) {
	s.filter = f
	if s.err != nil {
		return nil, s.err
	}
	return s.articles, nil
}

func (s *stubArticleStore) GetArticle(ctx context.Context, id string) (store.ArticleRecord, bool, error) {
	if s.err != nil {
		return store.ArticleRecord{}, false, s.err
	}
	for _, a := range s.articles {
		if a.ID == id {
			return a, true, nil
		}
	}
	return store.ArticleRecord{}, false, nil
}

type stubSearcher struct {
	hits  []search.Hit
	query string
	limit int
}

var _ Searcher = (*stubSearcher)(nil)

func (s *stubSearcher) Search(query string, limit int) ([]search.Hit, error) {
	s.query = query
	s.limit = limit
	return s.hits, nil
}

func TestArticlesList(t *testing.T) {
	st := &stubArticleStore{articles: []store.ArticleRecord{
		{ID: "a1", PlanDate: "2026-08-30", Title: "One", CreatedAt: time.Now()},
	}}
	h := &ArticlesHandler{Store: st}

	c, rec := newTestContext(t, http.MethodGet, "/api/articles?plan_date=2026-08-30&category=science&limit=5", "")
	if err := h.list(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if st.filter.PlanDate != "2026-08-30" || st.filter.Category != "science" || st.filter.Limit != 5 {
		t.Fatalf("filter = %+v", st.filter)
	}
	var items []store.ArticleRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a1" {
		t.Fatalf("items = %+v", items)
	}
}

func TestArticlesListEmptyIsArray(t *testing.T) {
	h := &ArticlesHandler{Store: &stubArticleStore{}}
	c, rec := newTestContext(t, http.MethodGet, "/api/articles", "")
	if err := h.list(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("body = %q, want empty JSON array", got)
	}
}

func TestArticlesListRejectsBadParams(t *testing.T) {
	h := &ArticlesHandler{Store: &stubArticleStore{}}

	c, _ := newTestContext(t, http.MethodGet, "/api/articles?plan_date=nope", "")
	if err := h.list(c); err == nil {
		t.Fatal("bad plan_date accepted")
	}
	c, _ = newTestContext(t, http.MethodGet, "/api/articles?limit=-1", "")
	if err := h.list(c); err == nil {
		t.Fatal("negative limit accepted")
	}
}

func TestArticlesGet(t *testing.T) {
	st := &stubArticleStore{articles: []store.ArticleRecord{{ID: "a1", Title: "One"}}}
	h := &ArticlesHandler{Store: st}

	c, rec := newTestContext(t, http.MethodGet, "/api/articles/a1", "")
	c.SetParamNames("id")
	c.SetParamValues("a1")
	if err := h.get(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	c, _ = newTestContext(t, http.MethodGet, "/api/articles/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestArticlesGetStoreError(t *testing.T) {
	h := &ArticlesHandler{Store: &stubArticleStore{err: errors.New("boom")}}
	c, _ := newTestContext(t, http.MethodGet, "/api/articles/a1", "")
	c.SetParamNames("id")
	c.SetParamValues("a1")

	err := h.get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500", err)
	}
}

func TestArticlesSearch(t *testing.T) {
	sr := &stubSearcher{hits: []search.Hit{{ID: "a1", Title: "One", Score: 1.5}}}
	h := &ArticlesHandler{Store: &stubArticleStore{}, Search: sr}

	c, rec := newTestContext(t, http.MethodGet, "/api/articles/search?q=eclipse&limit=3", "")
	if err := h.search(c); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK || sr.query != "eclipse" || sr.limit != 3 {
		t.Fatalf("code=%d query=%q limit=%d", rec.Code, sr.query, sr.limit)
	}
}

func TestArticlesSearchRequiresQuery(t *testing.T) {
	h := &ArticlesHandler{Store: &stubArticleStore{}, Search: &stubSearcher{}}
	c, _ := newTestContext(t, http.MethodGet, "/api/articles/search", "")

	err := h.search(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestArticlesSearchUnconfigured(t *testing.T) {
	h := &ArticlesHandler{Store: &stubArticleStore{}}
	c, _ := newTestContext(t, http.MethodGet, "/api/articles/search?q=x", "")

	err := h.search(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503", err)
	}
}
