package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/api"
	"github.com/smokyabdulrahman/prayer-companion/internal/cache"
	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/config"
	"github.com/smokyabdulrahman/prayer-companion/internal/geo"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

// Swapped in tests.
var (
	newAPIClient = api.NewClient
	newDetector  = geo.NewDetector
	newClock     = clock.Real
)

// app is the schedule pipeline shared by every command: API client, the
// cache and its second tier, and the location lookup.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	clock  clock.Clock
	client *api.Client
	cache  *cache.Cache
	files  *cache.FileStore
	redis  *cache.RedisStore
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	if err := validateFlags(cfg); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, clock: newClock(), client: newAPIClient()}

	// The file store also holds the detected location, so it is opened even
	// when redis serves the schedules. Cache failures are non-fatal.
	files, err := cache.NewFileStore(cfg.CacheDir)
	if err != nil {
		log.Warn().Err(err).Msg("file cache disabled")
	} else {
		a.files = files
	}

	opts := []cache.Option{cache.WithSize(cfg.CacheSize), cache.WithLogger(log)}
	switch {
	case cfg.RedisAddr != "":
		dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rs, err := cache.DialRedis(dialCtx, cfg.RedisAddr, "")
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis cache unavailable, falling back to files")
			if a.files != nil {
				opts = append(opts, cache.WithStore(a.files))
			}
		} else {
			a.redis = rs
			opts = append(opts, cache.WithStore(rs))
		}
	case a.files != nil:
		opts = append(opts, cache.WithStore(a.files))
	}

	c, err := cache.New(a.client.FetchTimings, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create schedule cache: %w", err)
	}
	a.cache = c
	return a, nil
}

// Close releases the redis connection, if any.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Debug().Err(err).Msg("closing redis")
		}
	}
}

func (a *app) method() int {
	return a.cfg.MethodOrDefault(prayer.DefaultMethod)
}

func (a *app) timeLayout() string {
	return prayer.GoTimeFormat(a.cfg.TimeFormat)
}

// locate resolves the location to use.
// Priority: CLI flags / config > cached geolocation > IP auto-detect.
func (a *app) locate(ctx context.Context) (*geo.Location, error) {
	l := &geo.Locator{Detector: newDetector(), Log: a.log}
	if a.files != nil {
		l.Store = a.files
	}
	return l.Locate(ctx, a.cfg.Coordinates())
}

// provider returns a fresh provider over the shared cache. Each consumer
// owns one so that its skip-redundant state is its own.
func (a *app) provider() *schedule.Provider {
	return schedule.New(a.cache, a.log)
}

// dayAt resolves the schedule for loc on now's date.
func (a *app) dayAt(ctx context.Context, p *schedule.Provider, loc *geo.Location, now time.Time) (prayer.Day, error) {
	coords := loc.Coordinates()
	day, err := p.Resolve(ctx, &coords, now, a.method())
	if err != nil {
		var fe *api.FetchError
		if errors.As(err, &fe) {
			return prayer.Day{}, fmt.Errorf("could not fetch prayer times: %w", err)
		}
		return prayer.Day{}, err
	}
	return day, nil
}
