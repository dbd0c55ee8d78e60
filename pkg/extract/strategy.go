package extract

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/utils"
)

// ProviderRun runs every attempt of one provider. It returns a result when
// the provider produced an acceptable graph and the diagnostics of its
// rejected attempts otherwise. A non-nil error aborts the whole extraction.
type ProviderRun func(ctx context.Context, provider string) (*Result, []AttemptRecord, error)

// Strategy decides how the providers of a chain are scheduled. It returns
// the accepted result, or nil and the merged diagnostics in chain order.
type Strategy interface {
	Run(ctx context.Context, chain []string, run ProviderRun) (*Result, []AttemptRecord, error)
}

// Strategy names accepted by NewStrategy.
const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
)

// DefaultBatchSize is the number of providers a parallel batch runs at once.
const DefaultBatchSize = 3

// NewStrategy returns the strategy called name.
func NewStrategy(name string, batchSize int) (Strategy, error) {
	switch name {
	case StrategySequential:
		return Sequential{}, nil
	case StrategyParallel, "":
		return ParallelBatch{Size: batchSize}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", name)
	}
}

// Sequential tries one provider at a time, in chain order.
type Sequential struct{}

// Run implements Strategy.
func (Sequential) Run(ctx context.Context, chain []string, run ProviderRun) (*Result, []AttemptRecord, error) {
	return ParallelBatch{Size: 1}.Run(ctx, chain, run)
}

// ParallelBatch runs the chain in batches of Size providers. Every provider
// of a batch runs to completion before the batch is judged, and the first
// acceptable result by position in the chain wins. The next batch starts only
// when the whole batch failed.
type ParallelBatch struct {
	Size int
}

type providerOutcome struct {
	result  *Result
	records []AttemptRecord
	err     error
}

// Run implements Strategy.
func (b ParallelBatch) Run(ctx context.Context, chain []string, run ProviderRun) (*Result, []AttemptRecord, error) {
	size := b.Size
	if size <= 0 {
		size = DefaultBatchSize
	}

	var records []AttemptRecord
	for _, batch := range utils.Batch(chain, size) {
		outcomes := make([]providerOutcome, len(batch))

		if len(batch) == 1 {
			outcomes[0] = runGuarded(ctx, batch[0], run)
		} else {
			var g errgroup.Group
			for i, provider := range batch {
				i, provider := i, provider
				g.Go(func() error {
					outcomes[i] = runGuarded(ctx, provider, run)
					return nil
				})
			}
			_ = g.Wait()
		}

		for _, out := range outcomes {
			if out.result != nil {
				return out.result, records, nil
			}
		}
		for i, out := range outcomes {
			records = append(records, out.records...)
			if out.err == nil {
				continue
			}
			if ctx.Err() != nil {
				return nil, records, ctx.Err()
			}
			records = append(records, AttemptRecord{Provider: batch[i], Error: describeError(out.err)})
		}
	}
	return nil, records, nil
}

// runGuarded runs one provider, turning a panic into an outcome error.
func runGuarded(ctx context.Context, provider string, run ProviderRun) (out providerOutcome) {
	defer utils.RecoverAsError(&out.err)
	out.result, out.records, out.err = run(ctx, provider)
	return out
}
