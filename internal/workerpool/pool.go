// Package workerpool provides a bounded worker pool for parallel batch
// execution, adapted from the teacher's pkg/workerpool.Pool: dynamic-scaling
// concerns are dropped (the grid only ever needs a fixed degree of
// parallelism per spec §5), but the submit/execute/panic-recovery shape is
// kept.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Common errors.
var (
	ErrPoolClosed  = errors.New("workerpool: pool is closed")
	ErrInvalidSize = errors.New("workerpool: invalid pool size")
)

// Task is one unit of parallel work.
type Task func(ctx context.Context) error

// Pool runs tasks across a bounded number of workers. Unlike the teacher's
// version this pool has no idle-timeout goroutines: batches are short-lived
// (one validate_all pass), so a long-lived worker pool
// would just be idle most of the time.
type Pool struct {
	size   int
	mu     sync.Mutex
	closed atomic.Bool
}

// New creates a pool with the given degree of parallelism.
func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return &Pool{size: size}, nil
}

// RunBatches runs fn once per item, at most Pool.size calls at a time,
// short-circuiting on first error or context
// cancellation (a suspension point per spec §5). It mirrors the teacher's
// SubmitBatch wait-for-all semantics but via errgroup, which is the
// ecosystem-idiomatic replacement for a hand-rolled WaitGroup/channel fan-in.
func RunBatches[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if len(items) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	for _, item := range items {
		item := item
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = ErrTaskPanicked(r)
				}
			}()
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// ErrTaskPanicked wraps a recovered panic value as an error.
func ErrTaskPanicked(v interface{}) error {
	return &panicError{v: v}
}

type panicError struct{ v interface{} }

func (e *panicError) Error() string { return "workerpool: task panicked: " + toString(e.v) }

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// Close marks the pool closed; subsequent RunBatches calls fail fast.
func (p *Pool) Close() error {
	p.closed.Store(true)
	return nil
}

// Size returns the configured degree of parallelism.
func (p *Pool) Size() int { return p.size }
