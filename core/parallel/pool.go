package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is a bounded set of workers scoped to a single batch of units.
// Units submitted after the context is done are skipped. The first unit
// that returns an error cancels the context seen by the remaining units.
//
// A Pool must be drained with Wait on every exit path.
type Pool struct {
	g      *errgroup.Group
	ctx    context.Context
	parent context.Context
}

// NewPool creates a pool running at most workers units at once.
// workers <= 0 means runtime.GOMAXPROCS(0).
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return &Pool{g: g, ctx: gctx, parent: ctx}
}

// Context returns the pool's context. It is cancelled when a unit fails
// or the parent context is cancelled.
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Go schedules fn, blocking while all workers are busy.
func (p *Pool) Go(fn func(ctx context.Context) error) {
	p.g.Go(func() error {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		return fn(p.ctx)
	})
}

// Wait blocks until every scheduled unit has returned and reports the
// first error, if any. A parent context that ended is reported even when no
// unit observed it.
func (p *Pool) Wait() error {
	if err := p.g.Wait(); err != nil {
		return err
	}
	return p.parent.Err()
}

// ForEach runs fn for every index in [0, n) on a pool of the given size and
// waits for all of them.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	pool := NewPool(ctx, workers)
	for i := 0; i < n; i++ {
		if pool.Context().Err() != nil {
			break
		}
		pool.Go(func(ctx context.Context) error {
			return fn(ctx, i)
		})
	}
	return pool.Wait()
}
