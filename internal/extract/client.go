// Package extract wraps generative extractors behind a single Client
// contract, tolerant JSON parsing of their responses, bounded retry with
// backoff, and the ensemble fan-out that runs two of them concurrently.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// Client is the contract every generative extractor adapter implements.
type Client interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Extract(ctx context.Context, modelID, articleTitle, text string) (*domain.Extraction, *Usage, error)
	Close() error
}

// Usage is the token usage an extractor call reports, used to build a
// CostRecord.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

const (
	maxEntitiesPerCall = 50
	clampFloor         = 0.0
	clampCeiling       = 1.0
)

func clampConfidence(c float64) float64 {
	if c < clampFloor {
		return clampFloor
	}
	if c > clampCeiling {
		return clampCeiling
	}
	return c
}

// ExtractionPrompt builds the structured extraction prompt, using the same
// delimiter-fenced shape throughout the codebase to resist prompt injection
// from article text.
func ExtractionPrompt(articleTitle, text string) string {
	return fmt.Sprintf(`You are a news analyst. Extract a short summary and every named entity from the article below.

<article_context>
Title: %s
</article_context>

<article_text>
%s
</article_text>

<extraction_rules>
1. Only extract entities EXPLICITLY named in the text.
2. Entity types: PERSON, LOCATION, ORGANIZATION, EVENT, OTHER.
3. Assign a confidence score between 0.0 and 1.0 for each entity.
4. Provide event_description only for EVENT entities; otherwise omit it.
</extraction_rules>

<output_format>
Respond ONLY with valid JSON in this exact shape:
{
  "summary": "one or two sentence summary",
  "entities": [
    {"entity": "name", "type": "PERSON|LOCATION|ORGANIZATION|EVENT|OTHER", "confidence": 0.0-1.0, "event_description": "optional"}
  ]
}
</output_format>

Extract now:`,
		sanitizePromptInput(articleTitle),
		sanitizePromptInput(text),
	)
}

// sanitizePromptInput strips delimiter and instruction-override sequences
// from untrusted article text before it is embedded in a prompt.
func sanitizePromptInput(input string) string {
	if len(input) > 20000 {
		input = input[:20000] + "..."
	}
	dangerous := []string{
		"</article_text>", "<article_text>",
		"</article_context>", "<article_context>",
		"</extraction_rules>", "<extraction_rules>",
		"</output_format>", "<output_format>",
		"ignore previous instructions", "ignore all previous",
		"disregard the above", "forget everything",
		"system:", "assistant:", "user:",
	}
	lower := strings.ToLower(input)
	for _, d := range dangerous {
		for {
			idx := strings.Index(lower, strings.ToLower(d))
			if idx == -1 {
				break
			}
			input = input[:idx] + "[FILTERED]" + input[idx+len(d):]
			lower = strings.ToLower(input)
		}
	}
	return input
}
