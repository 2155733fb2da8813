// Package clock abstracts the wall clock so the countdown and fasting loops
// can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current instant and periodic tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of *time.Ticker the loops rely on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Fake is a controllable Clock. Tickers created from it fire only when the
// clock is advanced past their next deadline.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	tickers map[*fakeTicker]struct{}
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start, tickers: make(map[*fakeTicker]struct{})}
}

// Now returns the instant tracked by the clock.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Set moves the clock to t without firing tickers.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d and fires every ticker whose deadline
// has been reached. A ticker that has not drained its previous tick drops the
// new one, like time.Ticker.
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	f.current = f.current.Add(d)
	now := f.current
	for t := range f.tickers {
		for !t.next.After(now) {
			select {
			case t.ch <- now:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
	f.mu.Unlock()
	return now
}

// NewTicker registers a ticker with period d.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		owner:  f,
		ch:     make(chan time.Time, 1),
		period: d,
		next:   f.current.Add(d),
	}
	f.tickers[t] = struct{}{}
	return t
}

// Tickers reports how many tickers are running.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

type fakeTicker struct {
	owner  *Fake
	ch     chan time.Time
	period time.Duration
	next   time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.owner.mu.Lock()
	delete(t.owner.tickers, t)
	t.owner.mu.Unlock()
}
