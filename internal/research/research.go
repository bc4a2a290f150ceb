// Package research gathers grounding context for the article generator:
// recent coverage of a trend, fetched and boiled down to a source digest.
// Research is best-effort; a failed digest never fails the job.
package research

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/trendpress/trendpress/internal/plan"
)

const defaultNewsEndpoint = "https://news.google.com/rss/search"

// Config tunes the research pass.
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxSources int           `mapstructure:"max_sources"`
	Fetcher    string        `mapstructure:"fetcher"` // http or chromedp
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxChars   int           `mapstructure:"max_chars"`
}

// SourceNote is one fetched page reduced to the bits worth prompting
// with.
type SourceNote struct {
	URL         string
	Title       string
	Description string
	Published   string
	Body        string
}

// Researcher builds digests from the news search feed for a topic.
type Researcher struct {
	Endpoint   string
	Fetcher    PageFetcher
	HTTPClient *http.Client
	MaxSources int
	MaxChars   int
	Logger     *log.Logger

	conv *md.Converter
	once sync.Once
}

func New(cfg Config, logger *log.Logger) (*Researcher, error) {
	fetcher, err := NewPageFetcher(cfg.Fetcher, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultNewsEndpoint
	}
	maxSources := cfg.MaxSources
	if maxSources <= 0 {
		maxSources = 3
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 6000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Researcher{
		Endpoint:   endpoint,
		Fetcher:    fetcher,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxSources: maxSources,
		MaxChars:   maxChars,
		Logger:     logger,
	}, nil
}

type newsFeed struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Digest fetches the top coverage for a trend and renders it as a
// Markdown digest for the generator prompt. Individual page failures
// are skipped; only a dead feed yields an error.
func (r *Researcher) Digest(ctx context.Context, trend plan.TrendCandidate) (string, error) {
	params := url.Values{}
	params.Add("q", trend.Title)
	reqURL := fmt.Sprintf("%s?%s", r.Endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch news feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("news feed error: %s", resp.Status)
	}

	var feed newsFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", fmt.Errorf("failed to decode news feed: %w", err)
	}

	items := feed.Channel.Items
	if len(items) > r.MaxSources {
		items = items[:r.MaxSources]
	}

	notes := make([]*SourceNote, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.MaxSources)
	for i, item := range items {
		g.Go(func() error {
			note, err := r.fetchNote(gctx, item.Link)
			if err != nil {
				r.Logger.Printf("skip source %s: %v", item.Link, err)
				return nil
			}
			if note.Title == "" {
				note.Title = item.Title
			}
			if note.Published == "" {
				note.Published = item.PubDate
			}
			notes[i] = note
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, note := range notes {
		if note == nil {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", note.Title)
		if note.Published != "" {
			fmt.Fprintf(&b, "Published: %s\n", note.Published)
		}
		if note.Description != "" {
			fmt.Fprintf(&b, "%s\n", note.Description)
		}
		if note.Body != "" {
			fmt.Fprintf(&b, "\n%s\n", note.Body)
		}
		fmt.Fprintf(&b, "Source: %s\n\n", note.URL)
	}
	digest := strings.TrimSpace(b.String())
	if len(digest) > r.MaxChars {
		digest = digest[:r.MaxChars]
	}
	return digest, nil
}

func (r *Researcher) fetchNote(ctx context.Context, pageURL string) (*SourceNote, error) {
	html, err := r.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	note := &SourceNote{URL: pageURL}

	// og: meta tags carry the cleanest title/description/date.
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
			prop, _ := sel.Attr("property")
			content, _ := sel.Attr("content")
			switch prop {
			case "og:title":
				note.Title = strings.TrimSpace(content)
			case "og:description":
				note.Description = strings.TrimSpace(content)
			case "article:published_time":
				note.Published = strings.TrimSpace(content)
			}
		})
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		// Meta alone is still a usable note.
		return note, nil
	}
	if note.Title == "" {
		note.Title = strings.TrimSpace(article.Title)
	}
	note.Body = r.toMarkdown(article.Content)
	if note.Body == "" {
		note.Body = strings.TrimSpace(article.TextContent)
	}
	if len(note.Body) > r.MaxChars/2 {
		note.Body = note.Body[:r.MaxChars/2]
	}
	return note, nil
}

func (r *Researcher) toMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	r.once.Do(func() { r.conv = md.NewConverter("", true, nil) })
	out, err := r.conv.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
