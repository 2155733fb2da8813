package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-companion/internal/display"
	"github.com/smokyabdulrahman/prayer-companion/internal/geo"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

func runToday(cmd *cobra.Command, args []string) error {
	// Get merged config (CLI flags > env > config file > defaults).
	cfg := effectiveConfig(cmd)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.locate(cmd.Context())
	if err != nil {
		return err
	}

	now := a.clock.Now()
	day, err := a.dayAt(cmd.Context(), a.provider(), loc, now)
	if err != nil {
		return err
	}

	summary, err := prayer.Summarize(day.Timings, now)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printTodayJSON(out, summary, day, loc, now, a.timeLayout())
	}
	printTodayRich(out, summary, day, loc, now, a.timeLayout())
	return nil
}

// buildLocationStr builds a "City, Country" string from available data.
func buildLocationStr(loc *geo.Location) string {
	if loc.City != "" && loc.Country != "" {
		return loc.City + ", " + loc.Country
	}
	// Fall back to coordinates.
	return fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)
}

// rowStyle places p relative to the summary: passed, current or next.
func rowStyle(p prayer.Prayer, s prayer.Summary) display.RowStyle {
	switch {
	case s.HasCurrent && p.Name == s.Current:
		return display.RowCurrent
	case !s.Next.Rollover && p.Name == s.Next.Name:
		return display.RowNext
	case s.Next.Rollover || prayer.Index(p.Name) < prayer.Index(s.Next.Name):
		return display.RowPassed
	default:
		return display.RowPlain
	}
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, s prayer.Summary, day prayer.Day, loc *geo.Location, now time.Time, layout string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", buildLocationStr(loc))
	if tz := timezoneOf(day, loc); tz != "" {
		fmt.Fprintf(w, "  %s\n", display.Gray(tz))
	}
	fmt.Fprintf(w, "  %s\n", now.Format("Monday 02 January 2006"))
	if day.Hijri != "" {
		fmt.Fprintf(w, "  %s\n", day.Hijri)
	}
	fmt.Fprintln(w)

	tbl := display.NewTable([]string{"Prayer", "Time"})
	for i, p := range s.Prayers {
		tbl.AddRow([]string{string(p.Name), p.Time.Format(layout)})
		tbl.SetRowStyle(i, rowStyle(p, s))
	}
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)

	remaining := prayer.FormatRemaining(prayer.RemainingUntil(now, s.Next.Time))
	label := string(s.Next.Name)
	if s.Next.Rollover {
		label += " (tomorrow)"
	}
	fmt.Fprintf(w, "  %s %s at %s, in %s\n", display.Gray("Next:"), display.Accent(label),
		s.Next.Time.Format(layout), display.Bold(remaining))
	fmt.Fprintln(w)
}

func timezoneOf(day prayer.Day, loc *geo.Location) string {
	if day.Timezone != "" {
		return day.Timezone
	}
	return loc.Timezone
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current,omitempty"`
	Next     todayJSONNext     `json:"next"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri,omitempty"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
	Rollover  bool   `json:"rollover,omitempty"`
}

func buildTodayJSON(s prayer.Summary, day prayer.Day, loc *geo.Location, now time.Time, layout string) todayJSON {
	timings := make(map[string]string, len(s.Prayers))
	for _, p := range s.Prayers {
		timings[strings.ToLower(string(p.Name))] = p.Time.Format(layout)
	}

	out := todayJSON{
		Location: todayJSONLocation{
			City:      loc.City,
			Country:   loc.Country,
			Timezone:  timezoneOf(day, loc),
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		},
		Date: todayJSONDate{
			Gregorian: now.Format("02 Jan 2006"),
			Hijri:     day.Hijri,
		},
		Timings: timings,
		Next: todayJSONNext{
			Prayer:    strings.ToLower(string(s.Next.Name)),
			Time:      s.Next.Time.Format(layout),
			Remaining: prayer.FormatRemaining(prayer.RemainingUntil(now, s.Next.Time)),
			Rollover:  s.Next.Rollover,
		},
	}
	if s.HasCurrent {
		out.Current = strings.ToLower(string(s.Current))
	}
	return out
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, s prayer.Summary, day prayer.Day, loc *geo.Location, now time.Time, layout string) error {
	return writeJSON(w, buildTodayJSON(s, day, loc, now, layout))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
