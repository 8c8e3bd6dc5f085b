// Package scheduler runs a batch of item references across a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"pricewatch/internal/logger"
	"pricewatch/internal/models"
)

// DefaultConcurrency is used when RunBatch is given a non-positive limit.
const DefaultConcurrency = 10

// ErrTaskPanicked wraps a panic recovered at the task boundary.
var ErrTaskPanicked = errors.New("task panicked")

// Task resolves one item reference. An error means the task failed in a way
// the fetch layer did not anticipate.
type Task func(ctx context.Context, ref models.ItemReference) (models.FetchResult, error)

// FromFetch adapts an error-free fetch function to a Task.
func FromFetch(fetch func(ctx context.Context, ref models.ItemReference) models.FetchResult) Task {
	return func(ctx context.Context, ref models.ItemReference) (models.FetchResult, error) {
		return fetch(ctx, ref), nil
	}
}

// CompletionHook runs exactly once per task, on the worker, before the task
// counts as finished.
type CompletionHook func(ctx context.Context, outcome models.Outcome)

// Pool dispatches tasks over a bounded number of goroutines.
type Pool struct {
	task       Task
	onComplete CompletionHook
	logger     *logger.Logger
}

// NewPool creates a pool. onComplete may be nil.
func NewPool(task Task, onComplete CompletionHook, log *logger.Logger) *Pool {
	return &Pool{
		task:       task,
		onComplete: onComplete,
		logger:     log,
	}
}

// RunBatch resolves every reference with at most concurrency tasks in
// flight and blocks until all of them have finished. The returned slice is
// indexed by input position. A failing task never aborts the batch.
func (p *Pool) RunBatch(ctx context.Context, refs []models.ItemReference, concurrency int) []models.Outcome {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]models.Outcome, len(refs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			outcome := models.Outcome{Index: i, Ref: ref, Result: p.resolve(ctx, i, ref)}
			outcomes[i] = outcome
			p.complete(ctx, outcome)

			return nil
		})
	}

	// Tasks never return errors; Wait is the batch barrier.
	_ = g.Wait()

	return outcomes
}

func (p *Pool) resolve(ctx context.Context, index int, ref models.ItemReference) (result models.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			p.logger.Error("task panicked", "index", index, "ref", string(ref), "error", err, "stack", string(debug.Stack()))
			result = models.Unresolved(err)
		}
	}()

	res, err := p.task(ctx, ref)
	if err != nil {
		p.logger.Error("task failed", "index", index, "ref", string(ref), "error", err)

		return models.Unresolved(err)
	}

	return res
}

func (p *Pool) complete(ctx context.Context, outcome models.Outcome) {
	if p.onComplete == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("completion hook panicked", "index", outcome.Index, "ref", string(outcome.Ref), "panic", r)
		}
	}()

	p.onComplete(ctx, outcome)
}
