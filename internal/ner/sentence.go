// Package ner provides the deterministic, model-independent capabilities the
// pipeline needs that must not depend on a generative extractor: sentence
// segmentation, an independent named-entity recognizer used as audit ground
// truth, and the position tracker that locates entity mentions in text.
package ner

import (
	"regexp"
	"strings"
)

// Sentence is one segmented span of article text.
type Sentence struct {
	Index int
	Start int
	End   int
	Text  string
}

// Paragraph is a blank-line-delimited span of article text.
type Paragraph struct {
	Index int
	Start int
	End   int
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+["')\]]?(\s+|$)`)

// Segment splits text into ordered sentence spans using a regex fallback:
// a period, question mark, or exclamation point (optionally followed by a
// closing quote or bracket) that is not immediately followed by a lowercase
// letter and does not end an honorific abbreviation such as "Gov." or
// "Dr.". This is the "capability, not a library" segmenter referenced by
// both the position tracker and the auditor: it has no external dependency
// and is always available, so it never needs its own fallback.
func Segment(text string) []Sentence {
	var sentences []Sentence
	if strings.TrimSpace(text) == "" {
		return sentences
	}

	start := 0
	idx := 0
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		end := loc[1]
		// Don't split when the next non-space rune is lowercase (likely an
		// abbreviation, e.g. "Gov. smith").
		rest := strings.TrimLeft(text[end:], " \t\n")
		if len(rest) > 0 {
			r := []rune(rest)[0]
			if r >= 'a' && r <= 'z' {
				continue
			}
		}
		// Don't split after an honorific abbreviation (e.g. "Gov. Phil Scott").
		before := text[start : loc[0]+1]
		abbrev := false
		for _, h := range honorifics {
			if strings.HasSuffix(before, h) && (len(before) == len(h) || strings.ContainsRune(" \t\n", rune(before[len(before)-len(h)-1]))) {
				abbrev = true
				break
			}
		}
		if abbrev {
			continue
		}
		span := strings.TrimSpace(text[start:end])
		if span != "" {
			sentences = append(sentences, Sentence{Index: idx, Start: start, End: end, Text: span})
			idx++
		}
		start = end
	}
	if start < len(text) {
		span := strings.TrimSpace(text[start:])
		if span != "" {
			sentences = append(sentences, Sentence{Index: idx, Start: start, End: len(text), Text: span})
		}
	}
	return sentences
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

// SegmentParagraphs splits text on one-or-more blank lines, per spec.md's
// paragraph definition.
func SegmentParagraphs(text string) []Paragraph {
	var paragraphs []Paragraph
	if strings.TrimSpace(text) == "" {
		return paragraphs
	}
	start := 0
	idx := 0
	locs := blankLine.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		if strings.TrimSpace(text[start:loc[0]]) != "" {
			paragraphs = append(paragraphs, Paragraph{Index: idx, Start: start, End: loc[0]})
			idx++
		}
		start = loc[1]
	}
	if strings.TrimSpace(text[start:]) != "" {
		paragraphs = append(paragraphs, Paragraph{Index: idx, Start: start, End: len(text)})
	}
	return paragraphs
}
