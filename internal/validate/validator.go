package validate

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// ConflictReport summarizes how consensus was reached for one article.
type ConflictReport struct {
	HadConflicts         bool
	UsedArbitration      bool
	SummarySimilarity    float64
	ConflictEntityCount  int
}

// Config holds the validator's tunable thresholds (spec.md §6).
type Config struct {
	SimilarityThreshold float64
	ConfidenceThreshold float64
}

// DefaultConfig matches spec.md's defaults.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: 0.75, ConfidenceThreshold: 0.4}
}

// Arbitrator is invoked on conflict to produce a fused consensus summary and
// a third source of entity corroboration.
type Arbitrator interface {
	Arbitrate(ctx context.Context, summaryA, summaryB string, entitiesA, entitiesB []domain.EntityMention) (summary string, arbitratorEntities []domain.EntityMention, err error)
}

var suspiciousPatterns = compileSuspiciousPatterns()

func compileSuspiciousPatterns() []*regexp.Regexp {
	patterns := []string{
		`(?i)ignore\s+(previous|all|above)`,
		`(?i)disregard\s+(the|all|previous)`,
		`(?i)forget\s+(everything|all|previous)`,
		`(?i)<script`,
		`(?i)javascript:`,
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func containsSuspiciousContent(s string) bool {
	for _, re := range suspiciousPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Validate merges the ensemble's extractions into a consensus summary and a
// deduplicated, confidence-filtered entity list, invoking arb on conflict.
func Validate(ctx context.Context, cfg Config, extractions []*domain.Extraction, arb Arbitrator) (string, []domain.EntityMention, ConflictReport, error) {
	if len(extractions) == 0 {
		return "", nil, ConflictReport{}, domain.ErrNoConsensus
	}
	if len(extractions) == 1 {
		merged := filterByConfidence(dedupe(extractions[0].Entities), cfg.ConfidenceThreshold)
		if len(merged) == 0 && strings.TrimSpace(extractions[0].Summary) == "" {
			return "", nil, ConflictReport{}, domain.ErrValidationBothEmpty
		}
		return extractions[0].Summary, merged, ConflictReport{SummarySimilarity: 1.0}, nil
	}

	a, b := extractions[0], extractions[1]
	similarity := cosineSimilarity(a.Summary, b.Summary)
	report := ConflictReport{SummarySimilarity: similarity}
	report.HadConflicts = similarity < cfg.SimilarityThreshold

	merged := mergeEntities(a.Entities, b.Entities)

	consensus := longerSummary(a.Summary, b.Summary)
	if report.HadConflicts && arb != nil {
		fusedSummary, arbEntities, err := arb.Arbitrate(ctx, a.Summary, b.Summary, a.Entities, b.Entities)
		if err == nil {
			consensus = fusedSummary
			report.UsedArbitration = true
			merged = mergeEntities(append(append([]domain.EntityMention{}, a.Entities...), b.Entities...), arbEntities)
		}
	}

	filtered := filterByConfidence(merged, cfg.ConfidenceThreshold)
	if len(filtered) == 0 && strings.TrimSpace(consensus) == "" {
		return "", nil, report, domain.ErrValidationBothEmpty
	}

	conflictCount := 0
	for _, m := range filtered {
		if len(m.Sources) > 1 {
			conflictCount++
		}
	}
	report.ConflictEntityCount = conflictCount

	return consensus, filtered, report, nil
}

func longerSummary(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}

// mergeEntities groups mentions by normalized surface form and type,
// unioning sources, taking the max confidence, applying the agreement
// boost when more than one source contributed, and keeping the longest
// non-empty event description.
func mergeEntities(sets ...[]domain.EntityMention) []domain.EntityMention {
	type agg struct {
		mention domain.EntityMention
		sources map[string]bool
	}
	byKey := make(map[string]*agg)
	var order []string

	for _, set := range sets {
		for _, m := range set {
			if containsSuspiciousContent(m.Surface) {
				continue
			}
			norm := Normalize(m.Surface, m.Type)
			if norm == "" {
				continue
			}
			key := CanonicalKey(m.Surface, m.Type)
			existing, ok := byKey[key]
			if !ok {
				copyM := m
				copyM.Normalized = norm
				a := &agg{mention: copyM, sources: map[string]bool{}}
				for _, s := range m.Sources {
					a.sources[s] = true
				}
				byKey[key] = a
				order = append(order, key)
				continue
			}
			if m.Confidence > existing.mention.Confidence {
				existing.mention.Confidence = m.Confidence
			}
			if len(m.EventDescription) > len(existing.mention.EventDescription) {
				existing.mention.EventDescription = m.EventDescription
			}
			for _, s := range m.Sources {
				existing.sources[s] = true
			}
		}
	}

	out := make([]domain.EntityMention, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		sources := make([]string, 0, len(a.sources))
		for s := range a.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		a.mention.Sources = sources
		if len(sources) > 1 {
			a.mention.Confidence = clamp01(a.mention.Confidence * 1.15)
		}
		out = append(out, a.mention)
	}
	return out
}

func dedupe(mentions []domain.EntityMention) []domain.EntityMention {
	return mergeEntities(mentions)
}

func filterByConfidence(mentions []domain.EntityMention, threshold float64) []domain.EntityMention {
	out := make([]domain.EntityMention, 0, len(mentions))
	for _, m := range mentions {
		if m.Confidence >= threshold {
			out = append(out, m)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var wordSplit = regexp.MustCompile(`[A-Za-z']+`)

// cosineSimilarity scores two summaries with a bag-of-words term-frequency
// cosine, a lexical stand-in for sentence-embedding similarity appropriate
// for short, two-to-three sentence summaries (see DESIGN.md for why no
// embedding service is wired in for this comparison).
func cosineSimilarity(a, b string) float64 {
	va := termFrequencies(a)
	vb := termFrequencies(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, fa := range va {
		normA += fa * fa
		if fb, ok := vb[term]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range vb {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFrequencies(s string) map[string]float64 {
	words := wordSplit.FindAllString(strings.ToLower(s), -1)
	freq := make(map[string]float64, len(words))
	for _, w := range words {
		freq[w]++
	}
	return freq
}
