// Package graph builds per-article proximity co-occurrence matrices, scores
// entity pairs with NPMI across a corpus, and applies size-adaptive edge
// thresholding.
package graph

import (
	"sort"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

// PairKey identifies an unordered entity pair, stored lexically sorted so
// (a,b) and (b,a) always collide.
type PairKey struct {
	A, B string
}

func pairKey(a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Cooccurrence aggregates one pair's co-occurrence evidence within a single
// article.
type Cooccurrence struct {
	TotalWeight         float64
	SameSentenceCount   int
	AdjacentCount       int
	NearProximityCount  int
	MinDistance         int
	MaxDistance         int
	DistanceSum         int
	Contributions       int
	Confidences         []float64
}

func (c *Cooccurrence) AvgDistance() float64 {
	if c.Contributions == 0 {
		return 0
	}
	return float64(c.DistanceSum) / float64(c.Contributions)
}

// RelationshipType is the lowest-distance class the pair co-occurred in.
func (c *Cooccurrence) RelationshipType() domain.RelationshipType {
	switch {
	case c.SameSentenceCount > 0:
		return domain.RelationSameSentence
	case c.AdjacentCount > 0:
		return domain.RelationAdjacentSentence
	default:
		return domain.RelationNearProximity
	}
}

// MeanConfidence averages the per-contribution confidences recorded for the
// pair, used as the relationship's own confidence (mean of the two
// endpoints', approximated here as the mean over all contributing mentions).
func (c *Cooccurrence) MeanConfidence() float64 {
	if len(c.Confidences) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.Confidences {
		sum += v
	}
	return sum / float64(len(c.Confidences))
}

// BuildMatrix groups positioned entity mentions by sentence index and
// accumulates weighted co-occurrence for every pair within windowSize
// sentences of each other, per spec: same sentence = 3.0, adjacent = 2.0,
// within window = 1.0.
func BuildMatrix(mentions []domain.EntityMention, windowSize int) map[PairKey]*Cooccurrence {
	bySentence := make(map[int][]domain.EntityMention)
	for _, m := range mentions {
		bySentence[m.SentenceIdx] = append(bySentence[m.SentenceIdx], m)
	}

	sentenceIdxs := make([]int, 0, len(bySentence))
	for idx := range bySentence {
		sentenceIdxs = append(sentenceIdxs, idx)
	}
	sort.Ints(sentenceIdxs)

	matrix := make(map[PairKey]*Cooccurrence)

	for i, si := range sentenceIdxs {
		for j := i; j < len(sentenceIdxs); j++ {
			sj := sentenceIdxs[j]
			distance := sj - si
			if distance > windowSize {
				break
			}
			contributePairs(matrix, bySentence[si], bySentence[sj], distance, si == sj)
		}
	}
	return matrix
}

func contributePairs(matrix map[PairKey]*Cooccurrence, left, right []domain.EntityMention, distance int, sameSentence bool) {
	for ai, a := range left {
		startJ := 0
		if sameSentence {
			startJ = ai + 1
		}
		for bj := startJ; bj < len(right); bj++ {
			b := right[bj]
			if sameSentence && a.Surface == b.Surface && a.Type == b.Type {
				continue
			}
			keyA := canonicalPairLabel(a)
			keyB := canonicalPairLabel(b)
			if keyA == keyB {
				continue
			}
			key := pairKey(keyA, keyB)
			c, ok := matrix[key]
			if !ok {
				c = &Cooccurrence{MinDistance: distance, MaxDistance: distance}
				matrix[key] = c
			}

			weight := weightForDistance(distance)
			c.TotalWeight += weight
			switch {
			case distance == 0:
				c.SameSentenceCount++
			case distance == 1:
				c.AdjacentCount++
			default:
				c.NearProximityCount++
			}
			if distance < c.MinDistance {
				c.MinDistance = distance
			}
			if distance > c.MaxDistance {
				c.MaxDistance = distance
			}
			c.DistanceSum += distance
			c.Contributions++
			c.Confidences = append(c.Confidences, (a.Confidence+b.Confidence)/2)
		}
	}
}

func weightForDistance(distance int) float64 {
	switch {
	case distance == 0:
		return 3.0
	case distance == 1:
		return 2.0
	default:
		return 1.0
	}
}

// canonicalPairLabel is the normalized surface + type key used to identify
// an entity for relationship purposes; Position Tracker output already
// carries a Normalized field once Validate has run, so this simply prefers
// it when present.
func canonicalPairLabel(m domain.EntityMention) string {
	norm := m.Normalized
	if norm == "" {
		norm = m.Surface
	}
	return strings.ToLower(strings.TrimSpace(norm)) + "|" + string(m.Type)
}

// DisplayLabels maps every canonical pair label present in mentions back to
// a human-readable name, for rendering persisted relationships: callers
// must not write a PairKey's internal "normalized|TYPE" form directly into
// entity_relationships.entity_a/entity_b. The first-seen mention's original
// Surface casing wins when a canonical label has multiple mentions.
func DisplayLabels(mentions []domain.EntityMention) map[string]string {
	out := make(map[string]string, len(mentions))
	for _, m := range mentions {
		key := canonicalPairLabel(m)
		if _, ok := out[key]; !ok {
			out[key] = m.Surface
		}
	}
	return out
}

// StripTypeSuffix strips the "|TYPE" suffix a canonical pair label carries,
// for use as a fallback display name when a label is missing from a
// DisplayLabels map.
func StripTypeSuffix(label string) string {
	if idx := strings.LastIndex(label, "|"); idx >= 0 {
		return label[:idx]
	}
	return label
}
