package research

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trendpress/trendpress/internal/plan"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "trendpress") {
			t.Errorf("user agent = %q", ua)
		}
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	html, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(html, "hello") {
		t.Fatalf("html = %q", html)
	}

	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Fatal("empty url accepted")
	}
}

func TestNewPageFetcher(t *testing.T) {
	if _, err := NewPageFetcher("http", 0); err != nil {
		t.Fatalf("http: %v", err)
	}
	if _, err := NewPageFetcher("chromedp", 0); err != nil {
		t.Fatalf("chromedp: %v", err)
	}
	if _, err := NewPageFetcher("lynx", 0); err == nil {
		t.Fatal("unsupported fetcher accepted")
	}
}

func TestDigestSkipsDeadSources(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Eclipse sweeps the Pacific"/>
<meta property="og:description" content="Millions watched the totality."/>
</head><body><article><p>The moon passed in front of the sun on Saturday, drawing crowds
across the Pacific rim. Astronomers called it the clearest view in a decade.</p></article></body></html>`

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/rss/search", func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "solar eclipse" {
			t.Errorf("query = %q", q)
		}
		feed := fmt.Sprintf(`<?xml version="1.0"?><rss><channel>
<item><title>Eclipse coverage</title><link>%s/article</link><pubDate>Sat, 29 Aug 2026 12:00:00 GMT</pubDate></item>
<item><title>Broken link</title><link>%s/gone</link></item>
</channel></rss>`, srv.URL, srv.URL)
		_, _ = w.Write([]byte(feed))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	r, err := New(Config{
		Endpoint:   srv.URL + "/rss/search",
		MaxSources: 3,
		Timeout:    5 * time.Second,
		MaxChars:   6000,
	}, log.New(log.Writer(), "[TEST] ", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	digest, err := r.Digest(context.Background(), plan.TrendCandidate{Title: "solar eclipse"})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if !strings.Contains(digest, "Eclipse sweeps the Pacific") {
		t.Fatalf("digest missing og:title:\n%s", digest)
	}
	if !strings.Contains(digest, "Millions watched") {
		t.Fatalf("digest missing description:\n%s", digest)
	}
	if strings.Contains(digest, "Broken link") {
		t.Fatalf("dead source leaked into digest:\n%s", digest)
	}
}

func TestDigestFeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, err := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Digest(context.Background(), plan.TrendCandidate{Title: "x"}); err == nil {
		t.Fatal("expected error for dead feed")
	}
}

func TestDigestTruncation(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/rss/search", func(w http.ResponseWriter, r *http.Request) {
		feed := fmt.Sprintf(`<rss><channel><item><title>Long</title><link>%s/article</link></item></channel></rss>`, srv.URL)
		_, _ = w.Write([]byte(feed))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>", long)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	r, err := New(Config{Endpoint: srv.URL + "/rss/search", MaxChars: 500, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	digest, err := r.Digest(context.Background(), plan.TrendCandidate{Title: "long read"})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if len(digest) > 500 {
		t.Fatalf("digest length %d exceeds cap", len(digest))
	}
}
