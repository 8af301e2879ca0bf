package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a configured worker count: values below 1 mean one
// worker per CPU core, and there is never more than one worker per item.
func Workers(configured, items int) int {
	n := configured
	if n < 1 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items // No need for more workers than items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ForEach calls fn for every index in [0, items) using at most workers
// goroutines. With a single worker the indices are visited in order on the
// calling goroutine. The first non-nil error cancels the context handed to
// the remaining calls and is returned.
func ForEach(ctx context.Context, items, workers int, fn func(ctx context.Context, i int) error) error {
	if items == 0 {
		return nil
	}
	workers = Workers(workers, items)

	if workers == 1 {
		for i := 0; i < items; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < items; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
