package cost

import (
	"context"
	"testing"

	"github.com/amlandas/newsgraph/internal/domain"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(context.Background(), nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error building tracker: %v", err)
	}
	return tr
}

func TestCheckBudget_BelowCapsDoesNotHalt(t *testing.T) {
	tr := newTestTracker(t)
	status, err := tr.CheckBudget(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Halt {
		t.Errorf("expected no halt with zero spend, got %+v", status)
	}
}

func TestRecord_AccumulatesSpendAndTriggersHalt(t *testing.T) {
	tr := newTestTracker(t)
	tr.dailyCap = 1.0
	tr.Record(domain.CostRecord{Provider: "anthropic", Model: "claude", CostUSD: 1.5})

	status, err := tr.CheckBudget(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Halt || status.Period != "daily" {
		t.Errorf("expected daily halt, got %+v", status)
	}
	halt := status.AsBudgetHalt()
	if halt == nil || halt.Period != "daily" {
		t.Errorf("expected BudgetHalt signal, got %+v", halt)
	}
}

func TestPrice_UsesProviderModelEntry(t *testing.T) {
	tr := newTestTracker(t)
	cost := tr.Price("anthropic", "claude", 1_000_000, 1_000_000)
	want := 3.0 + 15.0
	if cost != want {
		t.Errorf("expected cost %v, got %v", want, cost)
	}
}

func TestPrice_UnknownProviderYieldsZero(t *testing.T) {
	tr := newTestTracker(t)
	cost := tr.Price("unknown", "model", 1_000_000, 1_000_000)
	if cost != 0 {
		t.Errorf("expected 0 cost for unknown provider, got %v", cost)
	}
}

func TestNewCostRecord_PricesUsingTable(t *testing.T) {
	tr := newTestTracker(t)
	rec := tr.NewCostRecord("article-1", "openai", "gpt", 500_000, 100_000)
	want := 500_000.0/1_000_000*2.5 + 100_000.0/1_000_000*10.0
	if rec.CostUSD != want {
		t.Errorf("expected cost %v, got %v", want, rec.CostUSD)
	}
	if rec.ArticleID != "article-1" {
		t.Errorf("expected article id to be set, got %q", rec.ArticleID)
	}
}

func TestAsBudgetHalt_NilWhenNotHalted(t *testing.T) {
	status := Status{Halt: false}
	if status.AsBudgetHalt() != nil {
		t.Errorf("expected nil BudgetHalt when not halted")
	}
}
