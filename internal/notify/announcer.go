package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/metrics"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// TimingsFunc returns the schedule covering now.
type TimingsFunc func(ctx context.Context, now time.Time) (prayer.DailyTimings, error)

// Announcer publishes the next prayer, waits for it to pass, and repeats.
type Announcer struct {
	Clock      clock.Clock
	Timings    TimingsFunc
	Publisher  Publisher
	Lead       time.Duration
	TimeFormat string
	// Retry is how long to wait after a failed lookup or publish.
	Retry time.Duration
	Log   zerolog.Logger
}

// Run loops until ctx is done and returns ctx's error. Each distinct target
// is published once; a failed publish is retried after Retry.
func (a *Announcer) Run(ctx context.Context) error {
	retry := a.Retry
	if retry <= 0 {
		retry = time.Minute
	}
	layout := a.TimeFormat
	if layout == "" {
		layout = "15:04"
	}

	var last time.Time
	for {
		now := a.Clock.Now()
		next, err := a.resolve(ctx, now)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.Log.Warn().Err(err).Dur("retry", retry).Msg("cannot resolve next prayer")
			if err := a.waitUntil(ctx, now.Add(retry)); err != nil {
				return err
			}
			continue
		}

		if !next.Time.Equal(last) {
			d := NewDescriptor(next, a.Lead, layout)
			if err := a.Publisher.Publish(ctx, d); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.Announcements.WithLabelValues("error").Inc()
				a.Log.Warn().Err(err).Str("prayer", string(next.Name)).Msg("failed to publish next prayer")
				if err := a.waitUntil(ctx, now.Add(retry)); err != nil {
					return err
				}
				continue
			}
			metrics.Announcements.WithLabelValues("published").Inc()
			a.Log.Debug().Str("prayer", string(next.Name)).Time("time", next.Time).Msg("announced next prayer")
			last = next.Time
		}

		if err := a.waitUntil(ctx, next.Time); err != nil {
			return err
		}
	}
}

func (a *Announcer) resolve(ctx context.Context, now time.Time) (prayer.NextPrayer, error) {
	timings, err := a.Timings(ctx, now)
	if err != nil {
		return prayer.NextPrayer{}, err
	}
	return prayer.ResolveNext(timings, now)
}

// waitUntil blocks until the clock reaches t. Reaching t exactly counts.
func (a *Announcer) waitUntil(ctx context.Context, t time.Time) error {
	if !a.Clock.Now().Before(t) {
		return nil
	}
	ticker := a.Clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if !a.Clock.Now().Before(t) {
				return nil
			}
		}
	}
}
