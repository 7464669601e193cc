package graph

import (
	"testing"

	"github.com/amlandas/newsgraph/internal/domain"
)

func TestBuildMatrix_SameSentenceWeighsThree(t *testing.T) {
	mentions := []domain.EntityMention{
		{Surface: "Phil Scott", Normalized: "phil scott", Type: domain.EntityPerson, SentenceIdx: 0, Confidence: 0.9},
		{Surface: "Burlington", Normalized: "burlington", Type: domain.EntityLocation, SentenceIdx: 0, Confidence: 0.8},
	}
	matrix := BuildMatrix(mentions, 2)
	if len(matrix) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(matrix))
	}
	for _, c := range matrix {
		if c.TotalWeight != 3.0 {
			t.Errorf("expected weight 3.0 for same-sentence pair, got %v", c.TotalWeight)
		}
		if c.RelationshipType() != domain.RelationSameSentence {
			t.Errorf("expected same-sentence relationship type, got %v", c.RelationshipType())
		}
	}
}

func TestBuildMatrix_AdjacentSentenceWeighsTwo(t *testing.T) {
	mentions := []domain.EntityMention{
		{Surface: "Phil Scott", Normalized: "phil scott", Type: domain.EntityPerson, SentenceIdx: 0, Confidence: 0.9},
		{Surface: "Burlington", Normalized: "burlington", Type: domain.EntityLocation, SentenceIdx: 1, Confidence: 0.8},
	}
	matrix := BuildMatrix(mentions, 2)
	for _, c := range matrix {
		if c.TotalWeight != 2.0 {
			t.Errorf("expected weight 2.0 for adjacent pair, got %v", c.TotalWeight)
		}
	}
}

func TestBuildMatrix_OutsideWindowIsExcluded(t *testing.T) {
	mentions := []domain.EntityMention{
		{Surface: "Phil Scott", Normalized: "phil scott", Type: domain.EntityPerson, SentenceIdx: 0, Confidence: 0.9},
		{Surface: "Burlington", Normalized: "burlington", Type: domain.EntityLocation, SentenceIdx: 5, Confidence: 0.8},
	}
	matrix := BuildMatrix(mentions, 2)
	if len(matrix) != 0 {
		t.Errorf("expected no pairs outside the window, got %d", len(matrix))
	}
}

func TestBuildMatrix_SelfPairsExcluded(t *testing.T) {
	mentions := []domain.EntityMention{
		{Surface: "Phil Scott", Normalized: "phil scott", Type: domain.EntityPerson, SentenceIdx: 0, Confidence: 0.9},
		{Surface: "Phil Scott", Normalized: "phil scott", Type: domain.EntityPerson, SentenceIdx: 0, Confidence: 0.9},
	}
	matrix := BuildMatrix(mentions, 2)
	if len(matrix) != 0 {
		t.Errorf("expected no self-pairs, got %d", len(matrix))
	}
}

func TestPMIBatch_RareEntityFallsBackToProximity(t *testing.T) {
	matrix := map[PairKey]*Cooccurrence{
		{A: "a", B: "b"}: {TotalWeight: 3.0, SameSentenceCount: 1, Confidences: []float64{0.9}},
	}
	freqs := Frequencies{EntityDocFreq: map[string]int{"a": 1, "b": 5}, TotalDocs: 100}
	scores := PMIBatch(matrix, freqs, 0, 2)
	score := scores[PairKey{A: "a", B: "b"}]
	if score.ScoringMethod != "proximity" {
		t.Errorf("expected proximity fallback for rare entity, got %q", score.ScoringMethod)
	}
}

func TestPMIBatch_FrequentEntityUsesPMI(t *testing.T) {
	matrix := map[PairKey]*Cooccurrence{
		{A: "a", B: "b"}: {TotalWeight: 10.0, SameSentenceCount: 3, Confidences: []float64{0.9, 0.8}},
	}
	freqs := Frequencies{EntityDocFreq: map[string]int{"a": 10, "b": 8}, TotalDocs: 100}
	scores := PMIBatch(matrix, freqs, 0, 2)
	score := scores[PairKey{A: "a", B: "b"}]
	if score.ScoringMethod != "pmi" {
		t.Errorf("expected pmi scoring, got %q", score.ScoringMethod)
	}
	if score.NPMI < -1 || score.NPMI > 1 {
		t.Errorf("expected npmi clamped to [-1,1], got %v", score.NPMI)
	}
}

func TestPMIBatch_ConfiguredMinFrequencyRaisesTheFallbackBar(t *testing.T) {
	matrix := map[PairKey]*Cooccurrence{
		{A: "a", B: "b"}: {TotalWeight: 10.0, SameSentenceCount: 3, Confidences: []float64{0.9, 0.8}},
	}
	freqs := Frequencies{EntityDocFreq: map[string]int{"a": 10, "b": 8}, TotalDocs: 100}

	// With the default threshold (2) this pair qualifies for PMI.
	if scores := PMIBatch(matrix, freqs, 0, 2); scores[PairKey{A: "a", B: "b"}].ScoringMethod != "pmi" {
		t.Fatalf("expected pmi scoring at minFrequency=2")
	}
	// A stricter configured threshold pushes the same pair into proximity fallback.
	if scores := PMIBatch(matrix, freqs, 0, 9); scores[PairKey{A: "a", B: "b"}].ScoringMethod != "proximity" {
		t.Errorf("expected proximity fallback at minFrequency=9")
	}
}

func TestClassFor_Buckets(t *testing.T) {
	cases := map[int]SizeClass{5: SizeSmall, 10: SizeSmall, 11: SizeMedium, 25: SizeMedium, 26: SizeLarge}
	for n, want := range cases {
		if got := ClassFor(n); got != want {
			t.Errorf("ClassFor(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestFilterEdges_KeepsHighScoringEdges(t *testing.T) {
	edges := []Edge{
		{Pair: PairKey{A: "a", B: "b"}, Score: PMIScore{Score: 0.9}},
		{Pair: PairKey{A: "c", B: "d"}, Score: PMIScore{Score: 0.05}},
	}
	filtered := FilterEdges(edges, 5)
	foundHigh := false
	for _, e := range filtered {
		if e.Pair.A == "a" {
			foundHigh = true
		}
	}
	if !foundHigh {
		t.Errorf("expected high-scoring edge to survive, got %+v", filtered)
	}
}

func TestFilterEdges_EmptyInputYieldsNil(t *testing.T) {
	if out := FilterEdges(nil, 5); out != nil {
		t.Errorf("expected nil for empty input, got %+v", out)
	}
}

func TestFilterEdges_FallbackWhenAllFiltered(t *testing.T) {
	edges := []Edge{
		{Pair: PairKey{A: "a", B: "b"}, Score: PMIScore{Score: 0.01}},
		{Pair: PairKey{A: "c", B: "d"}, Score: PMIScore{Score: 0.02}},
	}
	filtered := FilterEdges(edges, 5)
	if len(filtered) == 0 {
		t.Errorf("expected top-N fallback to keep at least one edge")
	}
}

func TestCapPerEntity_RespectsMax(t *testing.T) {
	edges := []Edge{
		{Pair: PairKey{A: "hub", B: "x1"}, Score: PMIScore{Score: 0.9}},
		{Pair: PairKey{A: "hub", B: "x2"}, Score: PMIScore{Score: 0.8}},
		{Pair: PairKey{A: "hub", B: "x3"}, Score: PMIScore{Score: 0.7}},
	}
	capped := capPerEntity(edges, 2)
	count := 0
	for _, e := range capped {
		if e.Pair.A == "hub" || e.Pair.B == "hub" {
			count++
		}
	}
	if count > 2 {
		t.Errorf("expected at most 2 edges for hub, got %d", count)
	}
}
