package fleet

import (
	"context"
	"time"
)

// Signal is a one-shot cancellation signal shared by the loops of a fleet.
// Firing it is idempotent and safe from any goroutine.
type Signal struct {
	ctx  context.Context
	fire context.CancelFunc
}

// NewSignal returns an unfired signal.
func NewSignal() *Signal {
	ctx, cancel := context.WithCancel(context.Background())
	return &Signal{ctx: ctx, fire: cancel}
}

// Fire fires the signal.
func (s *Signal) Fire() {
	s.fire()
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	return s.ctx.Err() != nil
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Wait blocks for d or until the signal fires, whichever comes first.
// It returns true if the signal fired.
func (s *Signal) Wait(d time.Duration) bool {
	if d <= 0 {
		return s.Fired()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return true
	case <-timer.C:
		return s.Fired()
	}
}

// Context derives a context from parent that is also cancelled when the
// signal fires. Callers must call the returned CancelFunc.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
