// Package dispatch runs units of work with bounded concurrency.
package dispatch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// Execute runs worker once per item with at most maxConcurrency workers in
// flight and returns the first worker error.
//
// After the first failure no further item is started, but workers already
// running are left to finish; their context is not cancelled. Cancellation
// of ctx stops scheduling the same way and is reported as ctx.Err().
func Execute[T any](ctx context.Context, items []T, maxConcurrency int, worker func(context.Context, T) error) error {
	if maxConcurrency < 1 {
		return models.NewArgumentError(models.ErrArgumentOutOfRange, "concurrency")
	}

	var (
		g       errgroup.Group
		failed  atomic.Bool
		skipped atomic.Bool
	)
	g.SetLimit(maxConcurrency)

	for _, item := range items {
		if failed.Load() {
			break
		}
		if ctx.Err() != nil {
			skipped.Store(true)
			break
		}

		// Go blocks until a slot frees up, so the failure flag is checked
		// again once the unit actually gets to run.
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			if ctx.Err() != nil {
				skipped.Store(true)
				return nil
			}
			if err := worker(ctx, item); err != nil {
				failed.Store(true)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if skipped.Load() {
		return ctx.Err()
	}
	return nil
}
