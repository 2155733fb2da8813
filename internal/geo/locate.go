package geo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// Store persists the last detected location.
type Store interface {
	LoadGeo() *Location
	SaveGeo(loc *Location) error
}

// Locator resolves the coordinates to use for a lookup.
// Priority: explicit coordinates > cached detection > IP detection.
type Locator struct {
	Detector *Detector
	Store    Store // optional
	Log      zerolog.Logger
}

// Locate returns explicit when it is set, otherwise a cached or freshly
// detected location.
func (l *Locator) Locate(ctx context.Context, explicit *prayer.Coordinates) (*Location, error) {
	if explicit != nil {
		return &Location{Latitude: explicit.Latitude, Longitude: explicit.Longitude}, nil
	}

	if l.Store != nil {
		if cached := l.Store.LoadGeo(); cached != nil {
			return cached, nil
		}
	}

	detected, err := l.Detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("no location specified and auto-detection failed: %w", err)
	}
	l.Log.Debug().Str("city", detected.City).Str("country", detected.Country).Msg("detected location from IP")

	if l.Store != nil {
		if err := l.Store.SaveGeo(detected); err != nil {
			l.Log.Warn().Err(err).Msg("could not cache detected location")
		}
	}
	return detected, nil
}
