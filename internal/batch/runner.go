// Package batch drives the pipeline across a queue of pending articles,
// checking the cost budget between each one and halting the remaining
// queue gracefully on a cap breach, the way the teacher's daemon loop
// checks shutdown signals between units of work.
package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/observability"
	"github.com/amlandas/newsgraph/internal/pipeline"
	"github.com/amlandas/newsgraph/internal/store"
)

// Result summarizes one Run invocation.
type Result struct {
	Processed int
	Failed    int
	Halted    *domain.BudgetHalt
}

// Runner lists pending articles and drives each through the pipeline,
// checking recorded spend against the daily and monthly caps before each
// article. It halts once spend has reached a cap; the cost of the next
// article is not estimated, so the article that crosses a cap runs to
// completion and total spend can end above it.
type Runner struct {
	store     *store.Store
	pipeline  *pipeline.Pipeline
	tracker   *cost.Tracker
	batchSize int
	logger    zerolog.Logger
}

// New builds a Runner.
func New(s *store.Store, p *pipeline.Pipeline, tracker *cost.Tracker, batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Runner{store: s, pipeline: p, tracker: tracker, batchSize: batchSize, logger: observability.Logger("batch")}
}

// Run processes pending articles until the queue is empty or the budget
// halts, one pass of up to batchSize*N articles (it keeps pulling pages
// until ListPending returns none). No partial persistence occurs for an
// article abandoned because of a halt: ProcessArticle either completes or
// fails an article entirely before the loop checks budget again.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var result Result
	observability.LogEvent(r.logger, observability.EventBatchStarted, nil)

	for {
		status, err := r.tracker.CheckBudget(ctx)
		if err != nil {
			return result, fmt.Errorf("check budget: %w", err)
		}
		if halt := status.AsBudgetHalt(); halt != nil {
			observability.LogEvent(r.logger, observability.EventBudgetHalted, map[string]interface{}{
				"period":    halt.Period,
				"spent_usd": halt.SpentUSD,
				"cap_usd":   halt.CapUSD,
			})
			result.Halted = halt
			break
		}

		articles, err := r.store.ListPending(ctx, r.batchSize)
		if err != nil {
			return result, fmt.Errorf("list pending articles: %w", err)
		}
		if len(articles) == 0 {
			break
		}

		for _, a := range articles {
			status, err := r.tracker.CheckBudget(ctx)
			if err != nil {
				return result, fmt.Errorf("check budget: %w", err)
			}
			if halt := status.AsBudgetHalt(); halt != nil {
				observability.LogEvent(r.logger, observability.EventBudgetHalted, map[string]interface{}{
					"period":    halt.Period,
					"spent_usd": halt.SpentUSD,
					"cap_usd":   halt.CapUSD,
				})
				result.Halted = halt
				observability.LogEvent(r.logger, observability.EventBatchCompleted, map[string]interface{}{
					"processed": result.Processed,
					"failed":    result.Failed,
					"halted":    true,
				})
				return result, nil
			}

			if err := r.pipeline.ProcessArticle(ctx, a); err != nil {
				result.Failed++
				r.logger.Warn().Err(err).Str("article_id", a.ID).Msg("article processing failed")
				continue
			}
			result.Processed++
		}
	}

	observability.LogEvent(r.logger, observability.EventBatchCompleted, map[string]interface{}{
		"processed": result.Processed,
		"failed":    result.Failed,
		"halted":    result.Halted != nil,
	})
	return result, nil
}
