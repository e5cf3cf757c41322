// Package refresher drives the once-per-interval redraw of OTP codes.
package refresher

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval matches the one-second resolution of TOTP countdowns.
const DefaultInterval = time.Second

// TickFunc is called with the tick time. It runs on the refresher goroutine
// and should return quickly.
type TickFunc func(ctx context.Context, now time.Time)

// Refresher calls a TickFunc right away and then on every interval until
// stopped or until the context given to Start ends.
type Refresher struct {
	interval time.Duration
	fn       TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, fn TickFunc) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{interval: interval, fn: fn}
}

// Start is a no-op when the refresher is already running.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		select {
		case <-r.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fn(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			r.fn(ctx, now)
		}
	}
}

// Stop tears the ticker down and waits for an in-progress tick to finish.
// Safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
