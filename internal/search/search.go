// Package search maintains a full-text bleve index over generated
// articles.
package search

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve"

	"github.com/trendpress/trendpress/internal/store"
)

// Config locates the on-disk index. An empty path opens an in-memory
// index (tests, ephemeral runs).
type Config struct {
	IndexPath string `mapstructure:"index_path"`
}

type articleDoc struct {
	Title    string `json:"title"`
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
}

// Hit is one search result.
type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Index wraps a bleve index of articles.
type Index struct {
	idx bleve.Index
}

// Open opens or creates the index at path; empty path means in-memory.
func Open(path string) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("open in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}
	idx, err := bleve.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create index %s: %w", path, err)
		}
	}
	return &Index{idx: idx}, nil
}

// IndexArticle adds or replaces one article in the index.
func (i *Index) IndexArticle(rec store.ArticleRecord) error {
	doc := articleDoc{
		Title:    rec.Title,
		Topic:    rec.Topic,
		Category: rec.Category,
		Summary:  rec.Summary,
		Body:     rec.BodyMarkdown,
	}
	if err := i.idx.Index(rec.ID, doc); err != nil {
		return fmt.Errorf("index article %s: %w", rec.ID, err)
	}
	return nil
}

// Search runs a query-string query and returns up to limit hits.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"title", "summary"}
	req.Highlight = bleve.NewHighlight()

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		if summary, ok := h.Fields["summary"].(string); ok {
			hit.Snippet = summary
		}
		if frags, ok := h.Fragments["body"]; ok && len(frags) > 0 {
			hit.Snippet = frags[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (i *Index) Close() error { return i.idx.Close() }
