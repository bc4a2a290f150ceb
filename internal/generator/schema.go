package generator

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// articleSchema is the contract every provider response must meet
// before it becomes a job's article.
const articleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "body_markdown", "summary"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "body_markdown": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "tags": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// articlePayload is the JSON shape providers are asked to produce.
type articlePayload struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Summary      string   `json:"summary"`
	Tags         []string `json:"tags,omitempty"`
}

// validateArticleJSON checks a provider's JSON document against the
// article schema and reports every violation at once.
func validateArticleJSON(doc string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(articleSchema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("article schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("article response invalid: %s", strings.Join(msgs, "; "))
}
