package validate

import (
	"context"
	"fmt"

	"github.com/amlandas/newsgraph/internal/domain"
)

// ExtractFunc adapts a single generative-extractor call for the arbitrator,
// avoiding a direct dependency on internal/extract.Client's full interface
// (which also reports token usage the arbitrator does not need to track
// itself; its own call is costed by the caller instead).
type ExtractFunc func(ctx context.Context, modelID, articleTitle, text string) (*domain.Extraction, error)

// ClientArbitrator wraps a single (typically cost-optimized) extractor
// call and asks it to fuse two disputed summaries into one.
type ClientArbitrator struct {
	call    ExtractFunc
	modelID string
}

// NewClientArbitrator builds an Arbitrator over the given extract call.
func NewClientArbitrator(call ExtractFunc, modelID string) *ClientArbitrator {
	return &ClientArbitrator{call: call, modelID: modelID}
}

// Arbitrate asks the wrapped client to reconcile two conflicting summaries.
// The returned entity list becomes a third corroborating source for merge
// purposes; it never introduces entities the ensemble did not already
// report, since any arbitrator mention whose canonical key is not in
// entitiesA or entitiesB is dropped here before merging.
func (a *ClientArbitrator) Arbitrate(ctx context.Context, summaryA, summaryB string, entitiesA, entitiesB []domain.EntityMention) (string, []domain.EntityMention, error) {
	prompt := fmt.Sprintf(
		"Two summaries of the same news article disagree. Summary A: %q. Summary B: %q. "+
			"Write one fused summary that resolves the disagreement factually.",
		summaryA, summaryB,
	)
	extraction, err := a.call(ctx, a.modelID, "arbitration", prompt)
	if err != nil {
		return "", nil, err
	}

	// Only entities already present in A or B may be corroborated; any new
	// name the arbitrator invents is dropped, per the ensemble-grounding
	// rule: the arbitrator adds a source tag, it does not mint entities.
	known := make(map[string]bool)
	for _, m := range append(append([]domain.EntityMention{}, entitiesA...), entitiesB...) {
		known[CanonicalKey(m.Surface, m.Type)] = true
	}
	var corroborated []domain.EntityMention
	for _, m := range extraction.Entities {
		if known[CanonicalKey(m.Surface, m.Type)] {
			m.Sources = []string{"arbitrator"}
			corroborated = append(corroborated, m)
		}
	}
	return extraction.Summary, corroborated, nil
}
