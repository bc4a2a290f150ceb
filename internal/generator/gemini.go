package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator produces articles through the Google generative AI
// SDK with JSON response mode.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	temp    float64
	prompts Prompts
}

var _ Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(ctx context.Context, cfg Config, prompts Prompts) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{
		client:  client,
		model:   model,
		temp:    cfg.Temperature,
		prompts: prompts,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Article, error) {
	system, user := g.prompts.Render(req)

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(g.temp))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return Article{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Article{}, fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	doc, err := ExtractJSON(sb.String())
	if err != nil {
		return Article{}, fmt.Errorf("generator returned no JSON: %w", err)
	}
	if err := validateArticleJSON(doc); err != nil {
		return Article{}, err
	}
	var payload articlePayload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return Article{}, fmt.Errorf("failed to parse article: %w", err)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return Article{
		Title:        payload.Title,
		BodyMarkdown: payload.BodyMarkdown,
		Summary:      payload.Summary,
		Tags:         payload.Tags,
		Model:        g.model,
		TokensUsed:   tokens,
	}, nil
}

// Close releases the underlying SDK client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}
