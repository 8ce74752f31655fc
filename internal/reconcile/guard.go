package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"corpauth/pkg/platform/sentinel"
)

// guard admits one pass at a time. The in-process flag is checked first so
// a local duplicate never reaches the shared lock.
type guard struct {
	running atomic.Bool
	lock    PassLock
}

func (g *guard) enter(ctx context.Context) (func(), error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}
	if g.lock == nil {
		return func() { g.running.Store(false) }, nil
	}
	release, err := g.lock.Acquire(ctx)
	if err != nil {
		g.running.Store(false)
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, ErrPassInProgress
		}
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	return func() {
		release()
		g.running.Store(false)
	}, nil
}

func (g *guard) busy() bool {
	return g.running.Load()
}
