package graph

import "math"

// PMIScore is the scored evidence for one entity pair, corpus-wide.
type PMIScore struct {
	PMI            float64
	NPMI           float64
	ScoringMethod  string // "pmi" or "proximity"
	Score          float64 // the value thresholding should act on
	ConfAdjScore   float64
}

// Frequencies holds corpus-level marginal document frequencies for entities,
// keyed by the same canonical label BuildMatrix uses, plus the total
// document count.
type Frequencies struct {
	EntityDocFreq map[string]int
	TotalDocs     int
}

const defaultSmoothing = 1e-6
const defaultMinFrequencyForPMI = 2

// PMIBatch scores every pair in matrix against corpus-level frequencies.
// Pairs whose rarer endpoint has fewer than minFrequency corpus document
// occurrences bypass PMI entirely and fall back to a proximity-only score,
// the hybrid policy rare entities need since PMI is statistically
// unreliable below that threshold. minFrequency <= 0 falls back to 2.
func PMIBatch(matrix map[PairKey]*Cooccurrence, freqs Frequencies, smoothing float64, minFrequency int) map[PairKey]PMIScore {
	if smoothing <= 0 {
		smoothing = defaultSmoothing
	}
	if minFrequency <= 0 {
		minFrequency = defaultMinFrequencyForPMI
	}
	n := float64(freqs.TotalDocs)
	out := make(map[PairKey]PMIScore, len(matrix))

	maxWeight := maxTotalWeight(matrix)

	for key, c := range matrix {
		fx := freqs.EntityDocFreq[key.A]
		fy := freqs.EntityDocFreq[key.B]

		if minInt(fx, fy) < minFrequency {
			score := proximityOnlyScore(c.TotalWeight, maxWeight)
			out[key] = PMIScore{
				ScoringMethod: "proximity",
				Score:         score,
				ConfAdjScore:  score * c.MeanConfidence(),
			}
			continue
		}

		pXY := (c.TotalWeight + smoothing) / (n + smoothing)
		pX := (float64(fx) + smoothing) / (n + smoothing)
		pY := (float64(fy) + smoothing) / (n + smoothing)

		pmi := math.Log(pXY/(pX*pY+smoothing) + smoothing)
		npmiDenom := -math.Log(pXY+smoothing) + smoothing
		npmi := pmi / npmiDenom
		npmi = clampNPMI(npmi)

		out[key] = PMIScore{
			PMI:           pmi,
			NPMI:          npmi,
			ScoringMethod: "pmi",
			Score:         npmi,
			ConfAdjScore:  pmi * c.MeanConfidence(),
		}
	}
	return out
}

func clampNPMI(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxTotalWeight(matrix map[PairKey]*Cooccurrence) float64 {
	var max float64
	for _, c := range matrix {
		if c.TotalWeight > max {
			max = c.TotalWeight
		}
	}
	return max
}

// proximityOnlyScore maps total_weight linearly onto [0,1] against the
// article's own maximum observed weight, capping at 1.
func proximityOnlyScore(weight, maxWeight float64) float64 {
	if maxWeight <= 0 {
		return 0
	}
	score := weight / maxWeight
	if score > 1 {
		return 1
	}
	return score
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
