package ner

import (
	"regexp"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// Locate finds every occurrence of each mention's surface form in text and
// emits one positioned EntityMention per occurrence. Matching is
// case-insensitive and whole-word by default; surfaces that contain a
// period, apostrophe or hyphen (e.g. "H.100") fall back to a case-sensitive
// substring match, since a word-boundary regex would not reliably bracket
// punctuation-bearing tokens.
func Locate(text string, sentences []Sentence, paragraphs []Paragraph, mentions []domain.EntityMention) []domain.EntityMention {
	if len(sentences) == 0 {
		return nil
	}

	var out []domain.EntityMention
	seen := make(map[string]bool)
	for _, m := range mentions {
		key := strings.ToLower(m.Surface) + "|" + string(m.Type)
		if seen[key] {
			continue
		}
		seen[key] = true

		for _, occ := range findOccurrences(text, m.Surface) {
			sentIdx, paraIdx := containingSpans(occ.start, sentences, paragraphs)
			if sentIdx < 0 {
				continue
			}
			positioned := m
			positioned.SentenceIdx = sentIdx
			positioned.ParagraphIdx = paraIdx
			positioned.CharStart = occ.start
			positioned.CharEnd = occ.end
			out = append(out, positioned)
		}
	}
	return out
}

type occurrence struct {
	start, end int
}

func findOccurrences(text, surface string) []occurrence {
	surface = strings.TrimSpace(surface)
	if surface == "" {
		return nil
	}
	if hasPunctuation(surface) {
		return substringOccurrences(text, surface)
	}
	pattern := `(?i)\b` + regexp.QuoteMeta(surface) + `\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return substringOccurrences(text, surface)
	}
	locs := re.FindAllStringIndex(text, -1)
	out := make([]occurrence, 0, len(locs))
	for _, l := range locs {
		out = append(out, occurrence{start: l[0], end: l[1]})
	}
	return out
}

func hasPunctuation(s string) bool {
	for _, r := range s {
		if r == '.' || r == '\'' || r == '’' || r == '-' {
			return true
		}
	}
	return false
}

func substringOccurrences(text, surface string) []occurrence {
	var out []occurrence
	start := 0
	for {
		idx := strings.Index(text[start:], surface)
		if idx < 0 {
			break
		}
		abs := start + idx
		out = append(out, occurrence{start: abs, end: abs + len(surface)})
		start = abs + len(surface)
	}
	return out
}

func containingSpans(charStart int, sentences []Sentence, paragraphs []Paragraph) (sentIdx, paraIdx int) {
	sentIdx, paraIdx = -1, -1
	for _, s := range sentences {
		if charStart >= s.Start && charStart < s.End {
			sentIdx = s.Index
			break
		}
	}
	for _, p := range paragraphs {
		if charStart >= p.Start && charStart < p.End {
			paraIdx = p.Index
			break
		}
	}
	return
}
