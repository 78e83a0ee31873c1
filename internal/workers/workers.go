// Package workers offloads CPU-bound crypto work (password hashing,
// verification, token signing) onto a bounded pool so a slow Argon2
// computation cannot stall unrelated requests.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running crypto jobs. Acquisition
// honors the request context, so a cancelled request never queues work.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool with the given concurrency. size <= 0 defaults to
// GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Run executes fn on the pool and blocks until it completes or ctx is done
// while waiting for a slot.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunString is Run for functions producing a string result.
func (p *Pool) RunString(ctx context.Context, fn func() (string, error)) (string, error) {
	var out string
	err := p.Run(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// RunBool is Run for functions producing a bool result.
func (p *Pool) RunBool(ctx context.Context, fn func() (bool, error)) (bool, error) {
	var out bool
	err := p.Run(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
