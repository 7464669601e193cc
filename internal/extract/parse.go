package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// rawExtraction mirrors the contracted response JSON shape, with Confidence
// left as interface{} so a model that emits confidence as a string (a common
// quirk) still unmarshals.
type rawExtraction struct {
	Summary  string         `json:"summary"`
	Entities []rawEntityRaw `json:"entities"`
}

type rawEntityRaw struct {
	Entity           string      `json:"entity"`
	Type             string      `json:"type"`
	Confidence       interface{} `json:"confidence"`
	EventDescription string      `json:"event_description"`
}

func (r rawEntityRaw) confidence() float64 {
	switch v := r.Confidence.(type) {
	case float64:
		return v
	case string:
		var f float64
		fmt.Sscanf(v, "%f", &f)
		return f
	default:
		return 0
	}
}

// ParseExtraction parses a generative extractor's raw response text into a
// domain.Extraction, tolerating markdown fences, preamble before the JSON
// object, and truncated output. Stages: sanitize quirky escapes -> locate
// the first balanced brace block -> flexible unmarshal -> on failure,
// salvage just the entities array.
func ParseExtraction(provider, model, response string) (*domain.Extraction, error) {
	response = sanitizeJSONQuirks(stripMarkdownFences(response))

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return nil, domain.NewPipelineError(domain.ErrCodeExtraction, "extraction", "", "no JSON object found in response", nil)
	}
	jsonStr := response[start:]

	end := findBalancedEnd(jsonStr)
	if end == -1 {
		entities, err := salvageEntities(jsonStr)
		if err != nil {
			return nil, domain.NewPipelineError(domain.ErrCodeExtraction, "extraction", "", "truncated response could not be salvaged", err)
		}
		return toExtraction(provider, model, "", entities), nil
	}
	jsonStr = jsonStr[:end+1]

	var raw rawExtraction
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		entities, salvageErr := salvageEntities(jsonStr)
		if salvageErr != nil {
			return nil, domain.NewPipelineError(domain.ErrCodeExtraction, "extraction", "", "response did not parse as JSON", err)
		}
		return toExtraction(provider, model, "", entities), nil
	}
	return toExtraction(provider, model, raw.Summary, raw.Entities), nil
}

func toExtraction(provider, model, summary string, raw []rawEntityRaw) *domain.Extraction {
	entities := make([]domain.EntityMention, 0, len(raw))
	for _, e := range raw {
		name := strings.TrimSpace(e.Entity)
		if name == "" {
			continue
		}
		entities = append(entities, domain.EntityMention{
			Surface:          name,
			Type:             normalizeEntityType(e.Type),
			Confidence:       clampConfidence(e.confidence()),
			Sources:          []string{provider},
			EventDescription: strings.TrimSpace(e.EventDescription),
		})
	}
	return &domain.Extraction{Provider: provider, Model: model, Summary: summary, Entities: entities}
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return s
}

// sanitizeJSONQuirks corrects common LLM JSON-escaping mistakes, such as
// LaTeX-style backslash-underscore sequences that are not valid JSON
// escapes.
func sanitizeJSONQuirks(s string) string {
	replacer := strings.NewReplacer(
		`\_`, "_",
		`\*`, "*",
		`\#`, "#",
		`\[`, "[",
		`\]`, "]",
	)
	return replacer.Replace(s)
}

// findBalancedEnd finds the index of the closing brace matching the first
// opening brace, respecting string/escape context.
func findBalancedEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// salvageEntities recovers the entities array from JSON too truncated to
// parse whole, accepting the loss of the summary and any trailing entities.
func salvageEntities(jsonStr string) ([]rawEntityRaw, error) {
	idx := strings.Index(jsonStr, `"entities"`)
	if idx == -1 {
		return nil, fmt.Errorf("no entities field found")
	}
	arrStart := strings.Index(jsonStr[idx:], "[")
	if arrStart == -1 {
		return nil, fmt.Errorf("no entities array found")
	}
	arrStart += idx

	var entities []rawEntityRaw
	depth := 0
	objStart := -1
	for i := arrStart; i < len(jsonStr); i++ {
		switch jsonStr[i] {
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && objStart != -1 {
				var e rawEntityRaw
				if err := json.Unmarshal([]byte(jsonStr[objStart:i+1]), &e); err == nil {
					entities = append(entities, e)
				}
				objStart = -1
			}
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no complete entity objects recovered")
	}
	return entities, nil
}

// normalizeEntityType maps loose LLM vocabulary onto the fixed enumerated
// set, defaulting to OTHER for anything unrecognized.
func normalizeEntityType(t string) domain.EntityType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "person", "individual", "people", "human":
		return domain.EntityPerson
	case "location", "place", "region", "country", "city", "town":
		return domain.EntityLocation
	case "organization", "org", "company", "institution", "agency", "group":
		return domain.EntityOrganization
	case "event", "incident", "occurrence":
		return domain.EntityEvent
	default:
		return domain.EntityOther
	}
}
