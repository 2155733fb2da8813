package prayer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseError reports a wall-clock string that is not "HH:MM".
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

// Remaining is a non-negative hours/minutes/seconds breakdown.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero reports whether no time remains.
func (r Remaining) IsZero() bool {
	return r.Hours == 0 && r.Minutes == 0 && r.Seconds == 0
}

// Duration converts r back into a time.Duration.
func (r Remaining) Duration() time.Duration {
	return time.Duration(r.Hours)*time.Hour + time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}

// ToInstant places an "HH:MM" wall-clock time on ref's calendar date, in
// ref's location, with zero seconds. A trailing zone label such as
// "05:17 (BST)" is ignored.
func ToInstant(hhmm string, ref time.Time) (time.Time, error) {
	hour, min, err := parseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, min, 0, 0, ref.Location()), nil
}

// RemainingUntil returns target-now in whole seconds, clamped at zero.
func RemainingUntil(now, target time.Time) Remaining {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{}
	}
	secs := int64(d / time.Second)
	return Remaining{
		Hours:   int(secs / 3600),
		Minutes: int(secs % 3600 / 60),
		Seconds: int(secs % 60),
	}
}

func parseClock(raw string) (int, int, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " ("); idx != -1 && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[:idx])
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, &ParseError{Input: raw, Reason: "want HH:MM"}
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if hour > 23 {
		return 0, 0, &ParseError{Input: raw, Reason: "hour out of range"}
	}
	if min > 59 {
		return 0, 0, &ParseError{Input: raw, Reason: "minute out of range"}
	}
	return hour, min, nil
}
