package extract

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amlandas/newsgraph/internal/domain"
)

// EnsembleConfig names the two primary extractors run concurrently per
// article.
type EnsembleConfig struct {
	ClientA, ClientB Client
	ModelA, ModelB   string
	TimeoutSeconds   int
	Retry            RetryConfig
}

// RunEnsemble invokes ClientA and ClientB concurrently, each bounded by
// TimeoutSeconds, and returns whichever extractions succeeded. If exactly
// one client fails, the caller degrades to single-source mode. If both
// fail, the error wraps ErrBothExtractorsOut.
func RunEnsemble(ctx context.Context, cfg EnsembleConfig, articleTitle, text string) ([]*domain.Extraction, []*Usage, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var extractions [2]*domain.Extraction
	var usages [2]*Usage
	var errs [2]error

	g, gctx := errgroup.WithContext(ctx)
	run := func(i int, client Client, model string) func() error {
		return func() error {
			callCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			var extraction *domain.Extraction
			var usage *Usage
			err := WithRetry(callCtx, cfg.Retry, func() error {
				var innerErr error
				extraction, usage, innerErr = client.Extract(callCtx, model, articleTitle, text)
				return innerErr
			})
			extractions[i] = extraction
			usages[i] = usage
			errs[i] = err
			return nil // errors are collected per-slot, not propagated to the group
		}
	}
	g.Go(run(0, cfg.ClientA, cfg.ModelA))
	g.Go(run(1, cfg.ClientB, cfg.ModelB))
	_ = g.Wait()

	switch {
	case errs[0] == nil && errs[1] == nil:
		return []*domain.Extraction{extractions[0], extractions[1]}, []*Usage{usages[0], usages[1]}, nil
	case errs[0] == nil:
		return []*domain.Extraction{extractions[0]}, []*Usage{usages[0]}, nil
	case errs[1] == nil:
		return []*domain.Extraction{extractions[1]}, []*Usage{usages[1]}, nil
	default:
		return nil, nil, domain.NewPipelineError(domain.ErrCodeExtraction, "extraction", "", "both extractors failed", domain.ErrBothExtractorsOut)
	}
}
