// Package generator turns a trend into a finished article via an LLM
// provider. Providers return structured JSON which is schema-validated
// before it is accepted.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trendpress/trendpress/internal/plan"
)

// ErrUnsupportedProvider is returned by NewGenerator for unknown
// provider names.
var ErrUnsupportedProvider = errors.New("unsupported generator provider")

// Request carries everything the generator needs for one article.
type Request struct {
	Trend          plan.TrendCandidate
	PlanDate       string
	ResearchDigest string
}

// Article is the generator's output, ready for storage and indexing.
type Article struct {
	Title        string
	BodyMarkdown string
	Summary      string
	Tags         []string
	Model        string
	TokensUsed   int
}

// Generator produces article content for a job's trend, or fails with a
// generation error. Timeouts are the caller's responsibility via ctx.
type Generator interface {
	Generate(ctx context.Context, req Request) (Article, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider    string        `mapstructure:"provider"` // openai or gemini
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Endpoint    string        `mapstructure:"endpoint"` // override for tests/proxies
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsFile string        `mapstructure:"prompts_file"`
}

func (c Config) Validate() error {
	switch c.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("generator.api_key is required")
	}
	return nil
}

// NewGenerator builds the configured provider. Defaults to openai.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prompts, err := LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIGenerator(cfg, prompts), nil
	case "gemini":
		return NewGeminiGenerator(ctx, cfg, prompts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
