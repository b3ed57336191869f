package service

import (
	"sync"
	"sync/atomic"

	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// Gate holds ticket operations off while a conversion runs. Operations take
// the shared side through Enter; RunExclusive takes the exclusive side. A
// failed conversion leaves the gate closed for good.
type Gate struct {
	mu      sync.RWMutex
	closed  atomic.Bool
	failure error
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{}
}

// Enter admits one operation. The returned release must be called when the
// operation finishes.
func (g *Gate) Enter() (release func(), err error) {
	if g.closed.Load() {
		return nil, g.rejection()
	}
	g.mu.RLock()
	if g.closed.Load() {
		err := g.failure
		g.mu.RUnlock()
		if err == nil {
			err = apperrors.NewConversionInProgress()
		}
		return nil, err
	}
	return g.mu.RUnlock, nil
}

// RunExclusive closes the gate, waits for in-flight operations and runs fn.
// The gate reopens only when fn succeeds.
func (g *Gate) RunExclusive(fn func() error) error {
	g.closed.Store(true)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failure != nil {
		return g.failure
	}
	if err := fn(); err != nil {
		g.failure = err
		return err
	}
	g.closed.Store(false)
	return nil
}

// Closed reports whether operations are currently refused.
func (g *Gate) Closed() bool {
	return g.closed.Load()
}

func (g *Gate) rejection() error {
	if !g.mu.TryRLock() {
		return apperrors.NewConversionInProgress()
	}
	defer g.mu.RUnlock()
	if g.failure != nil {
		return g.failure
	}
	return apperrors.NewConversionInProgress()
}
