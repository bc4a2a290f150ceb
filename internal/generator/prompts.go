package generator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the template set used to build provider requests. A
// YAML file can override any field; unset fields keep the compiled-in
// defaults.
type Prompts struct {
	System string            `yaml:"system"`
	User   string            `yaml:"user"`
	Styles map[string]string `yaml:"styles"` // per-category style hints
}

const defaultSystemPrompt = `You are a news writer producing a standalone article about a trending search topic.

RULES:
1. Write factual, neutral prose grounded in the supplied source digest; when the digest is empty, write a measured explainer about why the topic is trending.
2. Never fabricate quotes, statistics, or named sources.
3. The article body is Markdown with a few section headings.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{
  "title": "headline",
  "body_markdown": "the full article in Markdown",
  "summary": "two-sentence summary",
  "tags": ["array", "of", "topic", "tags"]
}
Do not include any other text or explanation.`

const defaultUserPrompt = `TOPIC: "{{topic}}"
DATE: {{date}}
CATEGORY: {{category}}
STYLE: {{style}}

SOURCE DIGEST:
{{research}}`

var defaultStyles = map[string]string{
	"science":       "explanatory, assume a curious lay reader",
	"sports":        "energetic recap, lead with the result",
	"entertainment": "light but factual, no gossip framing",
	"business":      "sober, numbers first",
}

// LoadPrompts reads a YAML prompt file, falling back to the defaults for
// anything it leaves unset. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := Prompts{
		System: defaultSystemPrompt,
		User:   defaultUserPrompt,
		Styles: defaultStyles,
	}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("read prompts file: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	if override.System != "" {
		p.System = override.System
	}
	if override.User != "" {
		p.User = override.User
	}
	for k, v := range override.Styles {
		p.Styles[k] = v
	}
	return p, nil
}

// Render fills the user template for one request.
func (p Prompts) Render(req Request) (system, user string) {
	style := p.Styles[strings.ToLower(req.Trend.Category)]
	if style == "" {
		style = "straight news"
	}
	category := req.Trend.Category
	if category == "" {
		category = "general"
	}
	research := req.ResearchDigest
	if strings.TrimSpace(research) == "" {
		research = "(no sources available)"
	}
	r := strings.NewReplacer(
		"{{topic}}", req.Trend.Title,
		"{{date}}", req.PlanDate,
		"{{category}}", category,
		"{{style}}", style,
		"{{research}}", research,
	)
	return p.System, r.Replace(p.User)
}
