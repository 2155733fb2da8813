// Package fasting tracks progress through the Fajr to Maghrib fasting window.
package fasting

import (
	"context"
	"time"

	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/metrics"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// State is where now falls relative to the fasting window.
type State int

const (
	BeforeFast State = iota
	Fasting
	AfterFast
)

func (s State) String() string {
	switch s {
	case Fasting:
		return "fasting"
	case AfterFast:
		return "after_fast"
	default:
		return "before_fast"
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is one evaluation of the window. Fajr and Maghrib are the bounds
// actually used, after any shift to the previous day. Target and Remaining
// are only meaningful when HasRemaining is set.
type Status struct {
	Now          time.Time        `json:"now"`
	State        State            `json:"state"`
	Progress     float64          `json:"progress"`
	Remaining    prayer.Remaining `json:"remaining"`
	HasRemaining bool             `json:"has_remaining"`
	Target       time.Time        `json:"target,omitempty"`
	Fajr         time.Time        `json:"fajr"`
	Maghrib      time.Time        `json:"maghrib"`
}

// Evaluate derives the fasting state at now. Before today's Fajr the window
// is last night's, so both bounds move back one day. Both bounds are
// inclusive: now == fajr is 0% and now == maghrib is 100%.
func Evaluate(now, fajr, maghrib time.Time) Status {
	if now.Before(fajr) {
		fajr = fajr.AddDate(0, 0, -1)
		maghrib = maghrib.AddDate(0, 0, -1)
	}

	s := Status{Now: now, Fajr: fajr, Maghrib: maghrib}
	switch {
	case now.Before(fajr):
		s.State = BeforeFast
	case !now.After(maghrib):
		s.State = Fasting
		s.Progress = progress(now, fajr, maghrib)
		s.Target = maghrib
		s.HasRemaining = true
	default:
		s.State = AfterFast
		s.Progress = 100
		s.Target = fajr.AddDate(0, 0, 1)
		s.HasRemaining = true
	}
	if s.HasRemaining {
		s.Remaining = prayer.RemainingUntil(now, s.Target)
	}
	return s
}

func progress(now, fajr, maghrib time.Time) float64 {
	total := maghrib.Sub(fajr)
	if total <= 0 {
		return 100
	}
	p := float64(now.Sub(fajr)) / float64(total)
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return p * 100
}

// Window returns today's Fajr and Maghrib instants on now's date.
func Window(t prayer.DailyTimings, now time.Time) (fajr, maghrib time.Time, err error) {
	if fajr, err = t.Instant(prayer.Fajr, now); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if maghrib, err = t.Instant(prayer.Maghrib, now); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return fajr, maghrib, nil
}

// Tracker re-evaluates a window once per second. It shares nothing with the
// countdown except the instants it is handed.
type Tracker struct {
	clk clock.Clock
}

// NewTracker returns a Tracker reading time from clk.
func NewTracker(clk clock.Clock) *Tracker {
	return &Tracker{clk: clk}
}

// Run calls fn with a fresh Status immediately and then every second until
// ctx is done.
func (t *Tracker) Run(ctx context.Context, fajr, maghrib time.Time, fn func(Status)) {
	ticker := t.clk.NewTicker(time.Second)
	defer ticker.Stop()

	gauge := metrics.ActiveTickers.WithLabelValues("fasting")
	gauge.Inc()
	defer gauge.Dec()

	fn(Evaluate(t.clk.Now(), fajr, maghrib))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			fn(Evaluate(t.clk.Now(), fajr, maghrib))
		}
	}
}
