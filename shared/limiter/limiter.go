// Package limiter bounds how many ledger operations run at once across all
// transports.
package limiter

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when no slot frees up within the pool's wait limit.
var ErrBusy = errors.New("server busy")

type Limiter interface {
	// Acquire blocks until a slot is free. The returned func gives it back
	// and must be called exactly once.
	Acquire(ctx context.Context) (release func(), err error)
}

type Pool struct {
	slots   *semaphore.Weighted
	size    int64
	maxWait time.Duration
}

var _ Limiter = (*Pool)(nil)

// NewPool admits size concurrent holders. With maxWait > 0 a caller gives
// up after that long with ErrBusy; otherwise it waits as long as its ctx.
func NewPool(size int, maxWait time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		slots:   semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		maxWait: maxWait,
	}
}

func (p *Pool) Size() int { return int(p.size) }

func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if p.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.maxWait)
		defer cancel()
	}

	if err := p.slots.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}
	return func() { p.slots.Release(1) }, nil
}
