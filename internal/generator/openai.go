package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIGenerator calls the chat-completions API and asks for a JSON
// document matching the article schema.
type OpenAIGenerator struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
	prompts     Prompts
	httpClient  *http.Client
}

var _ Generator = (*OpenAIGenerator)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func NewOpenAIGenerator(cfg Config, prompts Prompts) *OpenAIGenerator {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openaiAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAIGenerator{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		prompts:     prompts,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Article, error) {
	system, user := g.prompts.Render(req)
	raw, tokens, err := g.sendRequest(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return Article{}, err
	}

	doc, err := ExtractJSON(raw)
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
	return Article{
		Title:        payload.Title,
		BodyMarkdown: payload.BodyMarkdown,
		Summary:      payload.Summary,
		Tags:         payload.Tags,
		Model:        g.model,
		TokensUsed:   tokens,
	}, nil
}

func (g *OpenAIGenerator) sendRequest(ctx context.Context, messages []chatMessage) (string, int, error) {
	body := chatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, out.Usage.TotalTokens, nil
}
