// Package prayer holds the daily prayer schedule model and the pure functions
// that derive the next and current prayer from it.
package prayer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Name identifies one of the six daily events tracked by the companion.
type Name string

const (
	Fajr    Name = "Fajr"
	Sunrise Name = "Sunrise"
	Dhuhr   Name = "Dhuhr"
	Asr     Name = "Asr"
	Maghrib Name = "Maghrib"
	Isha    Name = "Isha"
)

// Order is the canonical sequence used for next/current resolution.
var Order = []Name{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// ShortNames maps prayer names to single-character abbreviations.
var ShortNames = map[Name]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
}

// Index returns the position of n in Order, or -1 for an unknown name.
func Index(n Name) int {
	for i, o := range Order {
		if o == n {
			return i
		}
	}
	return -1
}

// ParseName matches s case-insensitively against the canonical names.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	for _, n := range Order {
		if strings.EqualFold(string(n), s) {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown prayer name: %q", s)
}

// Calculation method bounds accepted by the timings API.
const (
	MinMethod     = 0
	MaxMethod     = 16
	DefaultMethod = 2
)

// Coordinates is a resolved geographic position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Finite reports whether both coordinates are usable numbers.
func (c Coordinates) Finite() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// Query identifies one daily schedule lookup.
type Query struct {
	Latitude  float64
	Longitude float64
	Date      time.Time // only the calendar date is significant
	Method    int
}

// NewQuery builds a Query, truncating date to midnight in its own location.
func NewQuery(c Coordinates, date time.Time, method int) Query {
	return Query{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Date:      time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		Method:    method,
	}
}

// DateString formats the query date the way the timings API expects it.
func (q Query) DateString() string {
	return q.Date.Format("02-01-2006")
}

// Key is the stable cache key for q. Two queries with numerically equal
// fields always produce the same key.
func (q Query) Key() string {
	return formatCoord(q.Latitude) + "|" + formatCoord(q.Longitude) + "|" +
		q.DateString() + "|" + strconv.Itoa(q.Method)
}

func formatCoord(v float64) string {
	if v == 0 {
		v = 0 // folds -0 into 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DailyTimings maps each prayer to its "HH:MM" wall-clock time for one day.
type DailyTimings map[Name]string

// NewDailyTimings validates raw and returns it as DailyTimings. Every
// canonical prayer must be present and parseable.
func NewDailyTimings(raw map[Name]string) (DailyTimings, error) {
	t := make(DailyTimings, len(Order))
	for _, n := range Order {
		v, ok := raw[n]
		if !ok || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("missing time for %s", n)
		}
		if _, _, err := parseClock(v); err != nil {
			return nil, fmt.Errorf("invalid time for %s: %w", n, err)
		}
		t[n] = v
	}
	return t, nil
}

// Instant returns the instant of prayer n on ref's calendar date.
func (t DailyTimings) Instant(n Name, ref time.Time) (time.Time, error) {
	raw, ok := t[n]
	if !ok {
		return time.Time{}, &ParseError{Input: "", Reason: "no time for " + string(n)}
	}
	return ToInstant(raw, ref)
}

// Prayer is a named prayer at an absolute instant.
type Prayer struct {
	Name Name
	Time time.Time
}

// Prayers converts t into the ordered list of prayers on date.
func (t DailyTimings) Prayers(date time.Time) ([]Prayer, error) {
	prayers := make([]Prayer, 0, len(Order))
	for _, n := range Order {
		at, err := t.Instant(n, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s: %w", n, err)
		}
		prayers = append(prayers, Prayer{Name: n, Time: at})
	}
	return prayers, nil
}

// NextPrayer describes the upcoming prayer. Time is always after the moment
// it was computed for; Rollover marks tomorrow's Fajr.
type NextPrayer struct {
	Name     Name      `json:"name"`
	Time     time.Time `json:"time"`
	Rollover bool      `json:"rollover"`
}
