package trends

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trendpress/trendpress/internal/plan"
)

const defaultTrendsEndpoint = "https://trends.google.com/trending/rss"

// GoogleTrends reads the daily trending-searches RSS feed for a geo.
type GoogleTrends struct {
	Geo        string
	Endpoint   string
	HTTPClient *http.Client
}

var _ Source = (*GoogleTrends)(nil)

func NewGoogleTrends(geo, endpoint string, timeout time.Duration) *GoogleTrends {
	if geo == "" {
		geo = "US"
	}
	if endpoint == "" {
		endpoint = defaultTrendsEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleTrends{
		Geo:        geo,
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title         string `xml:"title"`
	ApproxTraffic string `xml:"approx_traffic"`
	NewsItems     []struct {
		Title string `xml:"news_item_title"`
	} `xml:"news_item"`
}

// FetchCandidates pulls the feed and maps items to candidates in feed
// order. The date argument is unused by this provider: the feed is
// always "today" from Google's point of view.
func (g *GoogleTrends) FetchCandidates(ctx context.Context, date string) ([]plan.TrendCandidate, error) {
	params := url.Values{}
	params.Add("geo", g.Geo)
	reqURL := fmt.Sprintf("%s?%s", g.Endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trends: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trends feed error: %s", resp.Status)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	candidates := make([]plan.TrendCandidate, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		candidates = append(candidates, plan.TrendCandidate{
			Title:        title,
			SearchVolume: ParseTraffic(item.ApproxTraffic),
		})
	}
	return candidates, nil
}

// ParseTraffic turns feed traffic strings like "200,000+" or "2M+" into
// an integer search volume. Unparseable input maps to zero.
func ParseTraffic(s string) int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "+"))
	if s == "" {
		return 0
	}
	mult := 1
	switch {
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1_000_000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1_000
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n * mult
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f * float64(mult))
	}
	return 0
}
