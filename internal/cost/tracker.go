// Package cost tallies extractor token usage and monetary spend, enforcing
// daily and monthly caps with a cooperative BudgetHalt signal, following the
// same evaluate-then-record shape the teacher uses for permission
// decisions.
package cost

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/observability"
)

// PricingEntry is the per-1M-token rate for one provider/model pair.
type PricingEntry struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// PricingTable maps "provider:model" to its rate; changing pricing is a
// single-point edit to this map.
type PricingTable map[string]PricingEntry

// Status is the result of a budget check.
type Status struct {
	Halt        bool
	Period      string
	SpentDaily  float64
	SpentMonth  float64
	DailyCap    float64
	MonthlyCap  float64
}

// Tracker maintains running daily/monthly sums, synced from persisted
// CostRecords and updated in memory after each write, per spec: persistence
// is authoritative, memory is cache.
type Tracker struct {
	mu         sync.Mutex
	db         *sql.DB
	logger     zerolog.Logger
	pricing    PricingTable
	dailyCap   float64
	monthlyCap float64
	spentDaily float64
	spentMonth float64
	dayAnchor  time.Time
	monthAnchor time.Time
}

// Config configures a Tracker's caps and pricing table.
type Config struct {
	DailyCap   float64
	MonthlyCap float64
	Pricing    PricingTable
}

// DefaultPricing is a representative starting table of per-million-token
// rates.
func DefaultPricing() PricingTable {
	return PricingTable{
		"ollama:*":            {InputPerMillion: 0, OutputPerMillion: 0},
		"anthropic:claude":    {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"openai:gpt":          {InputPerMillion: 2.5, OutputPerMillion: 10.0},
	}
}

// DefaultConfig matches spec.md's DAILY_CAP/MONTHLY_CAP defaults.
func DefaultConfig() Config {
	return Config{DailyCap: 10.0, MonthlyCap: 50.0, Pricing: DefaultPricing()}
}

// New builds a Tracker and loads today's/this month's running sums from db.
func New(ctx context.Context, db *sql.DB, cfg Config) (*Tracker, error) {
	t := &Tracker{
		db:         db,
		logger:     observability.Logger("cost"),
		pricing:    cfg.Pricing,
		dailyCap:   cfg.DailyCap,
		monthlyCap: cfg.MonthlyCap,
	}
	if err := t.reload(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func (t *Tracker) reload(ctx context.Context) error {
	now := time.Now()
	t.dayAnchor = dayStart(now)
	t.monthAnchor = monthStart(now)

	daily, err := t.sumSince(ctx, t.dayAnchor)
	if err != nil {
		return fmt.Errorf("load daily cost sum: %w", err)
	}
	monthly, err := t.sumSince(ctx, t.monthAnchor)
	if err != nil {
		return fmt.Errorf("load monthly cost sum: %w", err)
	}

	t.mu.Lock()
	t.spentDaily = daily
	t.spentMonth = monthly
	t.mu.Unlock()
	return nil
}

func (t *Tracker) sumSince(ctx context.Context, since time.Time) (float64, error) {
	if t.db == nil {
		return 0, nil
	}
	var sum sql.NullFloat64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM cost_records WHERE created_at >= ?`, since.UTC().Format(time.RFC3339),
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Float64, nil
}

// CheckBudget reports whether either cap has been exceeded, rolling the
// in-memory window forward if the day or month has turned over since the
// last call.
func (t *Tracker) CheckBudget(ctx context.Context) (Status, error) {
	now := time.Now()
	if dayStart(now).After(t.dayAnchor) || monthStart(now).After(t.monthAnchor) {
		if err := t.reload(ctx); err != nil {
			return Status{}, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	status := Status{
		SpentDaily: t.spentDaily,
		SpentMonth: t.spentMonth,
		DailyCap:   t.dailyCap,
		MonthlyCap: t.monthlyCap,
	}
	if t.spentDaily >= t.dailyCap {
		status.Halt = true
		status.Period = "daily"
	} else if t.spentMonth >= t.monthlyCap {
		status.Halt = true
		status.Period = "monthly"
	}
	return status, nil
}

// Price computes the monetary cost of one extractor call from its token
// usage, using the provider/model's pricing entry (falling back to a
// provider-wildcard entry, then zero, if no entry matches).
func (t *Tracker) Price(provider, model string, inputTokens, outputTokens int64) float64 {
	entry, ok := t.pricing[provider+":"+model]
	if !ok {
		entry, ok = t.pricing[provider+":*"]
	}
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*entry.InputPerMillion + float64(outputTokens)/1_000_000*entry.OutputPerMillion
}

// Record tallies one extractor call's cost and updates the in-memory
// running sums. Persistence of the CostRecord itself happens via
// internal/store; Record only updates the tracker's own view after the
// caller confirms the record was durably written.
func (t *Tracker) Record(rec domain.CostRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spentDaily += rec.CostUSD
	t.spentMonth += rec.CostUSD
	t.logger.Debug().
		Str("provider", rec.Provider).
		Str("model", rec.Model).
		Float64("cost_usd", rec.CostUSD).
		Float64("spent_daily", t.spentDaily).
		Float64("spent_monthly", t.spentMonth).
		Msg("cost recorded")
}

// NewCostRecord builds a domain.CostRecord for persistence, pricing the
// call via this tracker's table.
func (t *Tracker) NewCostRecord(articleID, provider, model string, inputTokens, outputTokens int64) domain.CostRecord {
	return domain.CostRecord{
		ID:         uuid.New().String(),
		ArticleID:  articleID,
		Provider:   provider,
		Model:      model,
		InputToks:  inputTokens,
		OutputToks: outputTokens,
		CostUSD:    t.Price(provider, model, inputTokens, outputTokens),
		CreatedAt:  time.Now(),
	}
}

// AsBudgetHalt builds the domain.BudgetHalt signal for a halted Status.
func (s Status) AsBudgetHalt() *domain.BudgetHalt {
	if !s.Halt {
		return nil
	}
	spent, capUSD := s.SpentDaily, s.DailyCap
	if s.Period == "monthly" {
		spent, capUSD = s.SpentMonth, s.MonthlyCap
	}
	return &domain.BudgetHalt{Period: s.Period, SpentUSD: spent, CapUSD: capUSD}
}
