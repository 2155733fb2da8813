// Package cache memoises daily schedules by query so identical lookups never
// reach the timings API twice.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/smokyabdulrahman/prayer-companion/internal/metrics"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// DefaultSize bounds the number of schedules kept in memory.
const DefaultSize = 128

// FetchFunc resolves a query against the remote API.
type FetchFunc func(ctx context.Context, q prayer.Query) (prayer.Day, error)

// Store is a persistent tier consulted before the network.
type Store interface {
	Load(ctx context.Context, q prayer.Query) (prayer.Day, bool, error)
	Save(ctx context.Context, q prayer.Query, day prayer.Day) error
}

// Cache maps queries to resolved schedules. A miss triggers at most one
// outstanding fetch per key; concurrent callers share its result.
type Cache struct {
	fetch FetchFunc
	store Store
	size  int
	log   zerolog.Logger

	entries *lru.Cache[string, prayer.Day]
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore adds a persistent tier.
func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

// WithSize overrides DefaultSize. Non-positive values are ignored.
func WithSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(l zerolog.Logger) Option { return func(c *Cache) { c.log = l } }

// New creates a Cache that resolves misses through fetch.
func New(fetch FetchFunc, opts ...Option) (*Cache, error) {
	c := &Cache{fetch: fetch, size: DefaultSize, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.New[string, prayer.Day](c.size)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Get returns the schedule previously stored for q.
func (c *Cache) Get(q prayer.Query) (prayer.Day, bool) {
	return c.entries.Get(q.Key())
}

// Put stores day for q, replacing any earlier entry for the same key.
func (c *Cache) Put(q prayer.Query, day prayer.Day) {
	c.entries.Add(q.Key(), day)
}

// Len reports the number of schedules held in memory.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every in-memory entry.
func (c *Cache) Purge() { c.entries.Purge() }

// Resolve returns the schedule for q from memory, the store, or the fetch
// function, in that order. If ctx ends while a shared fetch is in flight the
// caller stops waiting but the fetch still completes for the others.
func (c *Cache) Resolve(ctx context.Context, q prayer.Query) (prayer.Day, error) {
	if day, ok := c.Get(q); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return day, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	key := q.Key()
	ch := c.group.DoChan(key, func() (any, error) {
		if day, ok := c.entries.Get(key); ok {
			return day, nil
		}
		return c.load(context.WithoutCancel(ctx), q)
	})

	select {
	case <-ctx.Done():
		return prayer.Day{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return prayer.Day{}, res.Err
		}
		return res.Val.(prayer.Day), nil
	}
}

func (c *Cache) load(ctx context.Context, q prayer.Query) (prayer.Day, error) {
	if c.store != nil {
		day, ok, err := c.store.Load(ctx, q)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("key", q.Key()).Msg("schedule store lookup failed")
		case ok:
			metrics.CacheLookups.WithLabelValues("store").Inc()
			c.Put(q, day)
			return day, nil
		}
	}

	start := time.Now()
	day, err := c.fetch(ctx, q)
	metrics.FetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScheduleFetches.WithLabelValues("error").Inc()
		return prayer.Day{}, err
	}
	metrics.ScheduleFetches.WithLabelValues("ok").Inc()

	c.Put(q, day)
	if c.store != nil {
		if err := c.store.Save(ctx, q, day); err != nil {
			c.log.Warn().Err(err).Str("key", q.Key()).Msg("schedule store write failed")
		}
	}
	return day, nil
}
