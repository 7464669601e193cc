package graph

import "sort"

// SizeClass is the article-size-adaptive filtering tier.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// ClassFor buckets an article by its distinct entity count.
func ClassFor(entityCount int) SizeClass {
	switch {
	case entityCount <= 10:
		return SizeSmall
	case entityCount <= 25:
		return SizeMedium
	default:
		return SizeLarge
	}
}

type classConfig struct {
	minNPMI          float64
	percentileCutoff float64
	maxEdgesPerNode  int
}

var classConfigs = map[SizeClass]classConfig{
	SizeSmall:  {minNPMI: 0.3, percentileCutoff: 70, maxEdgesPerNode: 5},
	SizeMedium: {minNPMI: 0.5, percentileCutoff: 60, maxEdgesPerNode: 8},
	SizeLarge:  {minNPMI: 0.6, percentileCutoff: 50, maxEdgesPerNode: 10},
}

// Edge is a scored pair ready for threshold filtering.
type Edge struct {
	Pair  PairKey
	Score PMIScore
}

// FilterEdges applies the three-stage dynamic threshold: (1) keep edges at
// or above the size class's min_npmi/min-score, (2) keep edges at or above
// the size class's percentile cutoff of the surviving scores, (3) cap the
// number of edges incident to any one entity, keeping the highest-scoring.
// If the three stages leave no edge at all, the three highest-scoring
// original edges are kept instead (top-3 fallback), so a thresholded article
// is never left with zero relationships when co-occurrence evidence existed.
func FilterEdges(edges []Edge, entityCount int) []Edge {
	if len(edges) == 0 {
		return nil
	}
	cfg := classConfigs[ClassFor(entityCount)]

	stage1 := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Score.Score >= cfg.minNPMI {
			stage1 = append(stage1, e)
		}
	}

	stage2 := percentileFilter(stage1, cfg.percentileCutoff)

	final := capPerEntity(stage2, cfg.maxEdgesPerNode)

	if len(final) == 0 {
		final = topNFallback(edges, 3)
	}
	return final
}

func percentileFilter(edges []Edge, percentile float64) []Edge {
	if len(edges) == 0 {
		return edges
	}
	scores := make([]float64, len(edges))
	for i, e := range edges {
		scores[i] = e.Score.Score
	}
	sort.Float64s(scores)
	idx := int(percentile / 100 * float64(len(scores)-1))
	if idx < 0 {
		idx = 0
	}
	cutoff := scores[idx]

	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Score.Score >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

func capPerEntity(edges []Edge, maxPerEntity int) []Edge {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Score.Score > edges[j].Score.Score
	})

	counts := make(map[string]int)
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if counts[e.Pair.A] >= maxPerEntity || counts[e.Pair.B] >= maxPerEntity {
			continue
		}
		counts[e.Pair.A]++
		counts[e.Pair.B]++
		out = append(out, e)
	}
	return out
}

func topNFallback(edges []Edge, n int) []Edge {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Score.Score > sorted[j].Score.Score
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
