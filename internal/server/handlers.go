package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/prayer-companion/internal/api"
	"github.com/smokyabdulrahman/prayer-companion/internal/fasting"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type prayerJSON struct {
	Name    prayer.Name `json:"name"`
	Time    time.Time   `json:"time"`
	Display string      `json:"display"`
}

type timingsResponse struct {
	Date     string            `json:"date"`
	Hijri    string            `json:"hijri,omitempty"`
	Timezone string            `json:"timezone,omitempty"`
	Method   int               `json:"method"`
	Prayers  []prayerJSON      `json:"prayers"`
	Current  prayer.Name       `json:"current,omitempty"`
	Next     prayer.NextPrayer `json:"next"`
}

type nextResponse struct {
	Next          prayer.NextPrayer `json:"next"`
	Remaining     prayer.Remaining  `json:"remaining"`
	RemainingText string            `json:"remaining_text"`
}

type qiblaResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Direction float64 `json:"direction"`
}

// params reads latitude, longitude and method, falling back to the server
// defaults. A nil result means no location is known yet.
func (s *Server) params(r *http.Request) (*prayer.Coordinates, int, error) {
	q := r.URL.Query()
	coords := s.opts.Coordinates
	latStr, lonStr := q.Get("latitude"), q.Get("longitude")
	switch {
	case latStr != "" && lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
			return nil, 0, badRequest("invalid latitude %q", latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
			return nil, 0, badRequest("invalid longitude %q", lonStr)
		}
		coords = &prayer.Coordinates{Latitude: lat, Longitude: lon}
	case latStr != "" || lonStr != "":
		return nil, 0, badRequest("latitude and longitude must be given together")
	}

	method := s.opts.Method
	if m := q.Get("method"); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil || v < prayer.MinMethod || v > prayer.MaxMethod {
			return nil, 0, badRequest("method must be an integer between %d and %d", prayer.MinMethod, prayer.MaxMethod)
		}
		method = v
	}
	return coords, method, nil
}

// day resolves today's schedule for the request and returns it with the
// instant it was resolved for.
func (s *Server) day(ctx context.Context, r *http.Request, p *schedule.Provider) (prayer.Day, time.Time, int, error) {
	coords, method, err := s.params(r)
	if err != nil {
		return prayer.Day{}, time.Time{}, 0, err
	}
	now := s.opts.Clock.Now()
	day, err := p.Resolve(ctx, coords, now, method)
	return day, now, method, err
}

func (s *Server) handleTimings(w http.ResponseWriter, r *http.Request) {
	day, now, method, err := s.day(r.Context(), r, schedule.New(s.opts.Source, s.logger))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum, err := prayer.Summarize(day.Timings, now)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := timingsResponse{
		Date:     now.Format("02-01-2006"),
		Hijri:    day.Hijri,
		Timezone: day.Timezone,
		Method:   method,
		Prayers:  make([]prayerJSON, 0, len(sum.Prayers)),
		Next:     sum.Next,
	}
	for _, p := range sum.Prayers {
		resp.Prayers = append(resp.Prayers, prayerJSON{Name: p.Name, Time: p.Time, Display: p.Time.Format(s.opts.TimeFormat)})
	}
	if sum.HasCurrent {
		resp.Current = sum.Current
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	day, now, _, err := s.day(r.Context(), r, schedule.New(s.opts.Source, s.logger))
	if err != nil {
		s.writeError(w, err)
		return
	}
	next, err := prayer.ResolveNext(day.Timings, now)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rem := prayer.RemainingUntil(now, next.Time)
	writeJSON(w, http.StatusOK, nextResponse{Next: next, Remaining: rem, RemainingText: prayer.FormatRemaining(rem)})
}

func (s *Server) handleFasting(w http.ResponseWriter, r *http.Request) {
	day, now, _, err := s.day(r.Context(), r, schedule.New(s.opts.Source, s.logger))
	if err != nil {
		s.writeError(w, err)
		return
	}
	fajr, maghrib, err := fasting.Window(day.Timings, now)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fasting.Evaluate(now, fajr, maghrib))
}

func (s *Server) handleQibla(w http.ResponseWriter, r *http.Request) {
	coords, _, err := s.params(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if coords == nil {
		s.writeError(w, schedule.ErrAwaitingLocation)
		return
	}
	if s.opts.Qibla == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "qibla lookup is not configured"})
		return
	}
	dir, err := s.opts.Qibla.FetchQibla(r.Context(), coords.Latitude, coords.Longitude)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qiblaResponse{Latitude: coords.Latitude, Longitude: coords.Longitude, Direction: dir})
}

// writeError maps pipeline errors to responses. A missing location is a
// pending state, not a failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	var fetchErr *api.FetchError
	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": reqErr.Error()})
	case errors.Is(err, schedule.ErrAwaitingLocation):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "awaiting_location"})
	case errors.Is(err, schedule.ErrInvalidCoordinates):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &fetchErr):
		s.logger.Warn().Err(err).Msg("upstream fetch failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "retryable": true})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
