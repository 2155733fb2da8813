package prayer

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// exampleTimings is the reference schedule used across resolver tests.
func exampleTimings(t *testing.T) DailyTimings {
	t.Helper()
	timings, err := NewDailyTimings(map[Name]string{
		Fajr:    "05:00",
		Sunrise: "06:15",
		Dhuhr:   "12:30",
		Asr:     "15:45",
		Maghrib: "18:20",
		Isha:    "19:40",
	})
	if err != nil {
		t.Fatalf("NewDailyTimings: %v", err)
	}
	return timings
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// ToInstant
// ---------------------------------------------------------------------------

func TestToInstant(t *testing.T) {
	ref := time.Date(2026, 2, 28, 17, 45, 12, 999, time.UTC)

	tests := []struct {
		name    string
		raw     string
		wantH   int
		wantM   int
		wantErr bool
	}{
		{"simple HH:MM", "15:02", 15, 2, false},
		{"single digit hour", "5:07", 5, 7, false},
		{"midnight", "00:00", 0, 0, false},
		{"with timezone suffix", "15:02 (BST)", 15, 2, false},
		{"with spaces and suffix", "  05:17 (EET) ", 5, 17, false},
		{"invalid format", "bad", 0, 0, true},
		{"empty string", "", 0, 0, true},
		{"missing minute", "15:", 0, 0, true},
		{"one digit minute", "15:2", 0, 0, true},
		{"non-numeric", "ab:cd", 0, 0, true},
		{"hour out of range", "24:00", 0, 0, true},
		{"minute out of range", "12:60", 0, 0, true},
		{"seconds", "12:00:00", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInstant(tt.raw, ref)
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("ToInstant(%q) error = %v, want *ParseError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToInstant(%q) unexpected error: %v", tt.raw, err)
			}
			if got.Hour() != tt.wantH || got.Minute() != tt.wantM {
				t.Errorf("ToInstant(%q) = %02d:%02d, want %02d:%02d",
					tt.raw, got.Hour(), got.Minute(), tt.wantH, tt.wantM)
			}
			if got.Second() != 0 || got.Nanosecond() != 0 {
				t.Errorf("ToInstant(%q) has non-zero seconds: %v", tt.raw, got)
			}
			if got.Year() != 2026 || got.Month() != 2 || got.Day() != 28 {
				t.Errorf("ToInstant(%q) wrong date: got %v", tt.raw, got.Format("2006-01-02"))
			}
		})
	}
}

func TestToInstant_AllClockValues(t *testing.T) {
	ref := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			raw := time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
			got, err := ToInstant(raw, ref)
			if err != nil {
				t.Fatalf("ToInstant(%q): %v", raw, err)
			}
			if got.Hour() != h || got.Minute() != m || got.Day() != 4 {
				t.Fatalf("ToInstant(%q) = %v", raw, got)
			}
		}
	}
}

func TestToInstant_KeepsReferenceLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, loc)

	got, err := ToInstant("12:30", ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}
}

// ---------------------------------------------------------------------------
// RemainingUntil
// ---------------------------------------------------------------------------

func TestRemainingUntil(t *testing.T) {
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target time.Time
		want   Remaining
	}{
		{"same instant", now, Remaining{}},
		{"past", now.Add(-time.Hour), Remaining{}},
		{"sub-second", now.Add(900 * time.Millisecond), Remaining{}},
		{"mixed", now.Add(2*time.Hour + 15*time.Minute + 4*time.Second), Remaining{2, 15, 4}},
		{"over a day", now.Add(25*time.Hour + 1*time.Second), Remaining{25, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemainingUntil(now, tt.target)
			if got != tt.want {
				t.Errorf("RemainingUntil = %+v, want %+v", got, tt.want)
			}
			if got.Hours < 0 || got.Minutes < 0 || got.Seconds < 0 {
				t.Errorf("negative component in %+v", got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Query keys
// ---------------------------------------------------------------------------

func TestQueryKey(t *testing.T) {
	date := time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC)
	q := NewQuery(Coordinates{Latitude: 51.5074, Longitude: -0.1278}, date, 2)

	if got, want := q.Key(), "51.5074|-0.1278|05-03-2026|2"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	same := NewQuery(Coordinates{Latitude: 51.50740, Longitude: -0.12780}, date.Add(3*time.Hour), 2)
	if same.Key() != q.Key() {
		t.Errorf("equal queries produced different keys: %q vs %q", same.Key(), q.Key())
	}

	other := NewQuery(Coordinates{Latitude: 51.5074, Longitude: -0.1278}, date, 3)
	if other.Key() == q.Key() {
		t.Error("different methods share a key")
	}
}

func TestQueryKey_NegativeZero(t *testing.T) {
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	a := NewQuery(Coordinates{Latitude: 0, Longitude: 10}, date, 2)
	b := NewQuery(Coordinates{Latitude: math.Copysign(0, -1), Longitude: 10}, date, 2)
	if a.Key() != b.Key() {
		t.Errorf("0 and -0 keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestCoordinatesFinite(t *testing.T) {
	if !(Coordinates{Latitude: 21.4, Longitude: 39.8}).Finite() {
		t.Error("regular coordinates reported non-finite")
	}
	if (Coordinates{Latitude: math.NaN(), Longitude: 0}).Finite() {
		t.Error("NaN latitude reported finite")
	}
	if (Coordinates{Latitude: 0, Longitude: math.Inf(1)}).Finite() {
		t.Error("Inf longitude reported finite")
	}
}

// ---------------------------------------------------------------------------
// DailyTimings
// ---------------------------------------------------------------------------

func TestNewDailyTimings_Missing(t *testing.T) {
	_, err := NewDailyTimings(map[Name]string{Fajr: "05:00"})
	if err == nil {
		t.Fatal("expected error for missing prayers")
	}
	if !strings.Contains(err.Error(), "Sunrise") {
		t.Errorf("error should name the missing prayer, got %v", err)
	}
}

func TestNewDailyTimings_Malformed(t *testing.T) {
	raw := map[Name]string{
		Fajr: "05:00", Sunrise: "06:15", Dhuhr: "noon",
		Asr: "15:45", Maghrib: "18:20", Isha: "19:40",
	}
	_, err := NewDailyTimings(raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestPrayers_CanonicalOrder(t *testing.T) {
	prayers, err := exampleTimings(t).Prayers(at(1, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prayers) != len(Order) {
		t.Fatalf("expected %d prayers, got %d", len(Order), len(prayers))
	}
	for i, n := range Order {
		if prayers[i].Name != n {
			t.Errorf("prayer[%d] = %s, want %s", i, prayers[i].Name, n)
		}
		if i > 0 && !prayers[i].Time.After(prayers[i-1].Time) {
			t.Errorf("prayer[%d] not after prayer[%d]", i, i-1)
		}
	}
}

func TestParseName(t *testing.T) {
	n, err := ParseName(" maghrib ")
	if err != nil || n != Maghrib {
		t.Errorf("ParseName(maghrib) = %q, %v", n, err)
	}
	if _, err := ParseName("Tahajjud"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestShortNames_AllCanonical(t *testing.T) {
	for _, n := range Order {
		if _, ok := ShortNames[n]; !ok {
			t.Errorf("ShortNames missing entry for %q", n)
		}
	}
}

// ---------------------------------------------------------------------------
// ResolveNext / ResolveCurrent
// ---------------------------------------------------------------------------

func TestResolveNext(t *testing.T) {
	timings := exampleTimings(t)

	tests := []struct {
		name         string
		now          time.Time
		wantName     Name
		wantTime     time.Time
		wantRollover bool
		wantCurrent  Name
	}{
		{"before fajr", at(1, 3, 0), Fajr, at(1, 5, 0), false, ""},
		{"midday (example A)", at(1, 13, 0), Asr, at(1, 15, 45), false, Dhuhr},
		{"exactly dhuhr counts as passed", at(1, 12, 30), Asr, at(1, 15, 45), false, Dhuhr},
		{"exactly fajr", at(1, 5, 0), Sunrise, at(1, 6, 15), false, Fajr},
		{"between maghrib and isha", at(1, 19, 0), Isha, at(1, 19, 40), false, Maghrib},
		{"after isha (example B)", at(1, 20, 0), Fajr, at(2, 5, 0), true, ""},
		{"exactly isha", at(1, 19, 40), Fajr, at(2, 5, 0), true, ""},
		{"just before midnight", time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), Fajr, at(2, 5, 0), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ResolveNext(timings, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.Name != tt.wantName {
				t.Errorf("name = %s, want %s", next.Name, tt.wantName)
			}
			if !next.Time.Equal(tt.wantTime) {
				t.Errorf("time = %v, want %v", next.Time, tt.wantTime)
			}
			if next.Rollover != tt.wantRollover {
				t.Errorf("rollover = %v, want %v", next.Rollover, tt.wantRollover)
			}
			if !next.Time.After(tt.now) {
				t.Errorf("next time %v not after now %v", next.Time, tt.now)
			}

			current, ok := ResolveCurrent(next.Name)
			if tt.wantCurrent == "" {
				if ok {
					t.Errorf("current = %s, want none", current)
				}
			} else if !ok || current != tt.wantCurrent {
				t.Errorf("current = %q (%v), want %s", current, ok, tt.wantCurrent)
			}
		})
	}
}

func TestResolveNext_RolloverBetweenIshaAndFajr(t *testing.T) {
	timings := exampleTimings(t)
	isha := at(1, 19, 40)
	for offset := time.Minute; offset < 4*time.Hour; offset += 17 * time.Minute {
		now := isha.Add(offset)
		next, err := ResolveNext(timings, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Name != Fajr || next.Time.Day() != 2 || !next.Rollover {
			t.Fatalf("now=%v: got %+v, want tomorrow's Fajr", now, next)
		}
		if _, ok := ResolveCurrent(next.Name); ok {
			t.Fatalf("now=%v: expected no current prayer on rollover", now)
		}
	}
}

func TestResolveNext_MonthBoundary(t *testing.T) {
	timings := exampleTimings(t)
	now := time.Date(2026, 3, 31, 21, 0, 0, 0, time.UTC)

	next, err := ResolveNext(timings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 4, 1, 5, 0, 0, 0, time.UTC)
	if !next.Time.Equal(want) {
		t.Errorf("time = %v, want %v", next.Time, want)
	}
}

func TestResolveNext_MissingEntry(t *testing.T) {
	_, err := ResolveNext(DailyTimings{Fajr: "05:00"}, at(1, 12, 0))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestResolveCurrent_Unknown(t *testing.T) {
	if _, ok := ResolveCurrent(Name("Tahajjud")); ok {
		t.Error("expected no current prayer for unknown name")
	}
}

// ---------------------------------------------------------------------------
// Summarize
// ---------------------------------------------------------------------------

func TestSummarize(t *testing.T) {
	timings := exampleTimings(t)

	s, err := Summarize(timings, at(1, 13, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Prayers) != len(Order) {
		t.Errorf("expected %d prayers, got %d", len(Order), len(s.Prayers))
	}
	if s.Next.Name != Asr || !s.HasCurrent || s.Current != Dhuhr {
		t.Errorf("summary = %+v, want next Asr / current Dhuhr", s)
	}

	s, err = Summarize(timings, at(1, 20, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Next.Rollover || s.HasCurrent {
		t.Errorf("after Isha: summary = %+v, want rollover with no current", s)
	}
}
