// Package schedule resolves the day's prayer timings for a consumer and
// guards against stale or redundant lookups.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

var (
	// ErrAwaitingLocation means no coordinates are available yet. It is a
	// pending state rather than a failure.
	ErrAwaitingLocation = errors.New("awaiting location")
	// ErrInvalidCoordinates rejects NaN or infinite coordinates.
	ErrInvalidCoordinates = errors.New("coordinates must be finite numbers")
	// ErrSuperseded is returned to a caller whose query was replaced by a
	// newer one while its fetch was in flight. Nothing was committed.
	ErrSuperseded = errors.New("schedule request superseded by a newer query")
)

// Source resolves a query, typically through the schedule cache.
type Source interface {
	Resolve(ctx context.Context, q prayer.Query) (prayer.Day, error)
}

// State is the provider's lifecycle as seen by a display.
type State int

const (
	StateAwaiting State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "awaiting_location"
	}
}

// Entry is a committed query and its schedule.
type Entry struct {
	Query prayer.Query
	Day   prayer.Day
}

// Provider resolves schedules for one consumer. It remembers the last
// committed query so that re-resolving the same tuple is a no-op, and it
// refuses to commit a response whose query is no longer the latest request.
type Provider struct {
	source Source
	log    zerolog.Logger

	mu        sync.Mutex
	latest    string
	state     State
	lastErr   error
	committed *Entry
}

// New creates a Provider backed by source.
func New(source Source, log zerolog.Logger) *Provider {
	return &Provider{source: source, log: log}
}

// Resolve returns the timings for coords on date using method. Fetch
// failures are returned unchanged and nothing is retried.
func (p *Provider) Resolve(ctx context.Context, coords *prayer.Coordinates, date time.Time, method int) (prayer.Day, error) {
	if coords == nil {
		// Nothing still in flight may commit once the location is gone.
		p.mu.Lock()
		p.latest = ""
		p.state, p.lastErr = StateAwaiting, nil
		p.mu.Unlock()
		return prayer.Day{}, ErrAwaitingLocation
	}
	if !coords.Finite() {
		return prayer.Day{}, ErrInvalidCoordinates
	}

	q := prayer.NewQuery(*coords, date, method)
	key := q.Key()

	p.mu.Lock()
	p.latest = key
	if p.committed != nil && p.committed.Query.Key() == key {
		day := p.committed.Day
		p.mu.Unlock()
		return day, nil
	}
	p.state, p.lastErr = StateLoading, nil
	p.mu.Unlock()

	day, err := p.source.Resolve(ctx, q)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest != key {
		p.log.Debug().Str("key", key).Str("latest", p.latest).Msg("dropping superseded schedule response")
		return prayer.Day{}, ErrSuperseded
	}
	if err != nil {
		p.state, p.lastErr = StateFailed, err
		return prayer.Day{}, err
	}
	p.committed = &Entry{Query: q, Day: day}
	p.state = StateReady
	p.log.Debug().Str("key", key).Msg("schedule committed")
	return day, nil
}

// Current returns the last committed schedule.
func (p *Provider) Current() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committed == nil {
		return Entry{}, false
	}
	return *p.committed, true
}

// State reports the provider's state and, when failed, the last error.
func (p *Provider) State() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.lastErr
}
