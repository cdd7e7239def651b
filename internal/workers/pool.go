package workers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the worker count used when none is configured.
const DefaultSize = 4

// Pool runs independent index-addressed tasks on a fixed number of goroutines.
type Pool struct {
	size int
}

// New creates a pool; non-positive sizes fall back to DefaultSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{size: size}
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.size
}

// Run calls task for every index in [0,n) and blocks until all have finished.
// Tasks already started are not interrupted; a cancelled context or any task
// error fails the whole batch.
func (p *Pool) Run(ctx context.Context, n int, task func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(i)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("worker batch: %w", err)
	}
	return nil
}

// Map fills a pre-sized slice with fn(i) using the pool. On failure no
// partial results are returned.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	err := p.Run(ctx, n, func(i int) error {
		v, err := fn(i)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
