package ner

import (
	"regexp"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// Metrics are the independent-auditor scores for one article's ensemble
// output, computed against this package's deterministic recognizer.
type Metrics struct {
	EntityCount int
	Precision   float64
	Recall      float64
	F1          float64
}

var honorifics = []string{"Mr.", "Mrs.", "Ms.", "Dr.", "Gov.", "Sen.", "Rep.", "Hon.", "Rev.", "Prof."}

var orgSuffixes = []string{
	"Inc", "LLC", "Corp", "Corporation", "Company", "Co", "Department",
	"Legislature", "Commission", "Committee", "Agency", "Authority",
	"Board", "Council", "University", "College", "Hospital",
}

var locationWords = map[string]bool{
	"Vermont": true, "Burlington": true, "Montpelier": true, "Ontario": true,
	"County": true, "City": true, "Town": true, "Street": true, "Avenue": true,
	"Road": true, "Park": true, "Lake": true, "River": true, "Mountain": true,
}

// capRun matches a run of one or more capitalized words, allowing internal
// periods and apostrophes so that "H.100", "O'Brien", and "St. Johnsbury"
// stay intact as a single candidate.
var capRun = regexp.MustCompile(`\b[A-Z][A-Za-z0-9.'’]*(?:\s+[A-Z][A-Za-z0-9.'’]*)*\b`)

// Audit runs the deterministic recognizer over the full article text and
// returns its own entity list, independent of any generative extractor.
// This independence is why the tagger is rule-based rather than model-based:
// an LLM-backed auditor would share failure modes with the ensemble it is
// meant to check.
func Audit(text string) []domain.EntityMention {
	var out []domain.EntityMention
	sentences := Segment(text)
	for _, sent := range sentences {
		for _, m := range capRun.FindAllString(sent.Text, -1) {
			surface := strings.TrimSpace(strings.Trim(m, ".'’"))
			if surface == "" || isStopWord(surface) {
				continue
			}
			t, ok := classify(surface)
			if !ok {
				continue
			}
			out = append(out, domain.EntityMention{
				Surface:     surface,
				Type:        t,
				Confidence:  1.0,
				SentenceIdx: sent.Index,
			})
		}
	}
	return out
}

var stopWords = map[string]bool{
	"The": true, "A": true, "An": true, "In": true, "On": true, "At": true,
	"It": true, "He": true, "She": true, "They": true, "This": true, "That": true,
}

func isStopWord(s string) bool {
	return stopWords[s] && !strings.Contains(s, " ")
}

func classify(surface string) (domain.EntityType, bool) {
	for _, h := range honorifics {
		if strings.HasPrefix(surface, h+" ") || surface == strings.TrimSuffix(h, ".") {
			return domain.EntityPerson, true
		}
	}
	for _, suf := range orgSuffixes {
		if strings.HasSuffix(surface, suf) {
			return domain.EntityOrganization, true
		}
	}
	words := strings.Fields(surface)
	for _, w := range words {
		if locationWords[w] {
			return domain.EntityLocation, true
		}
	}
	// A bare two-word capitalized span with no other cue is treated as a
	// probable person name (first/last), the most common bare capitalized
	// pattern in news prose.
	if len(words) == 2 {
		return domain.EntityPerson, true
	}
	if len(words) == 1 && len(surface) > 2 {
		return domain.EntityOther, true
	}
	return "", false
}

// Evaluate computes precision/recall/F1 of ensemble entities against this
// package's independent recognizer, matching on normalized surface form and
// type per spec.md's intersection rule.
func Evaluate(ensemble, auditor []domain.EntityMention) Metrics {
	eSet := toSet(ensemble)
	aSet := toSet(auditor)

	var intersect int
	for k := range eSet {
		if aSet[k] {
			intersect++
		}
	}

	m := Metrics{EntityCount: len(auditor)}
	if len(eSet) > 0 {
		m.Precision = float64(intersect) / float64(len(eSet))
	}
	if len(aSet) > 0 {
		m.Recall = float64(intersect) / float64(len(aSet))
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func toSet(mentions []domain.EntityMention) map[string]bool {
	set := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		key := strings.ToLower(m.Surface) + "|" + string(m.Type)
		set[key] = true
	}
	return set
}
