// Package countdown drives a once-per-second remaining-time display for a
// target instant.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/metrics"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// Interval is the tick cadence.
const Interval = time.Second

// Tick is one recomputation. Now is read once per tick.
type Tick struct {
	Now       time.Time        `json:"now"`
	Target    time.Time        `json:"target"`
	Remaining prayer.Remaining `json:"remaining"`
}

// Expired reports whether the target has been reached. The countdown does
// not move on by itself; the owner supplies the next target.
func (t Tick) Expired() bool { return t.Remaining.IsZero() }

// Reached reports whether the clock has arrived at the target. Remaining
// rounds down, so the last second before the target is already Expired but
// not yet Reached.
func (t Tick) Reached() bool { return !t.Now.Before(t.Target) }

// Run calls fn immediately and then once per Interval until ctx is done.
// Each tick recomputes the remaining time from the clock, so a paused
// process catches up instead of drifting. The ticker is released on return.
func Run(ctx context.Context, clk clock.Clock, target time.Time, fn func(Tick)) {
	ticker := clk.NewTicker(Interval)
	defer ticker.Stop()

	gauge := metrics.ActiveTickers.WithLabelValues("countdown")
	gauge.Inc()
	defer gauge.Dec()

	emit := func() {
		now := clk.Now()
		fn(Tick{Now: now, Target: target, Remaining: prayer.RemainingUntil(now, target)})
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			emit()
		}
	}
}

// Ticker owns at most one running countdown and restarts it whenever the
// target changes. Calls to fn are serialised, and a replaced countdown starts
// no further calls once SetTarget returns.
type Ticker struct {
	clk clock.Clock
	fn  func(Tick)

	fnMu sync.Mutex

	mu     sync.Mutex
	target time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker returns an idle Ticker that reports to fn.
func NewTicker(clk clock.Clock, fn func(Tick)) *Ticker {
	return &Ticker{clk: clk, fn: fn}
}

// SetTarget starts a countdown to target, replacing any running one. The
// same target is a no-op; the zero time stops the countdown. It may be
// called from inside fn.
func (t *Ticker) SetTarget(target time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil && target.Equal(t.target) {
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel, t.done = nil, nil
	}
	t.target = target
	if target.IsZero() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go func() {
		defer close(done)
		Run(ctx, t.clk, target, func(tk Tick) { t.call(ctx, tk) })
	}()
}

func (t *Ticker) call(ctx context.Context, tk Tick) {
	t.fnMu.Lock()
	defer t.fnMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	t.fn(tk)
}

// Target returns the instant being counted down to, or the zero time.
func (t *Ticker) Target() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

// Stop cancels the running countdown and waits for it to exit. It must not
// be called from inside fn.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done, t.target = nil, nil, time.Time{}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
