package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Full prayer name, e.g. "Asr"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Time remaining, e.g. "2h 15m 4s"
	Hours     int
	Minutes   int
	Seconds   int
}

// GoTimeFormat maps the "12h"/"24h" setting to a Go layout.
func GoTimeFormat(setting string) string {
	if setting == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// FormatRemaining renders r as "Xh Ym Zs", dropping leading zero units.
func FormatRemaining(r Remaining) string {
	switch {
	case r.Hours > 0:
		return fmt.Sprintf("%dh %dm %ds", r.Hours, r.Minutes, r.Seconds)
	case r.Minutes > 0:
		return fmt.Sprintf("%dm %ds", r.Minutes, r.Seconds)
	default:
		return fmt.Sprintf("%ds", r.Seconds)
	}
}

// FormatOutput formats the next prayer for display according to mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ShortName, .Time, .Remaining, .Hours,
// .Minutes, .Seconds
//
// Example: "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m 0s"
func FormatOutput(p NextPrayer, now time.Time, mode string, timeFormat string) string {
	r := RemainingUntil(now, p.Time)
	remaining := FormatRemaining(r)
	timeStr := p.Time.Format(timeFormat)
	name := string(p.Name)
	short := ShortNames[p.Name]

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, FormatData{
			Name:      name,
			ShortName: short,
			Time:      timeStr,
			Remaining: remaining,
			Hours:     r.Hours,
			Minutes:   r.Minutes,
			Seconds:   r.Seconds,
		})
	}

	switch mode {
	case FormatTimeRemaining:
		return remaining
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", name, timeStr)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", name, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", name, timeStr, remaining)
	default:
		return fmt.Sprintf("%s %s", name, timeStr)
	}
}

func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
