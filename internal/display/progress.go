package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// Clock renders r as a zero-padded "HH:MM:SS" countdown.
func Clock(r prayer.Remaining) string {
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}

// ProgressBar draws percent (clamped to 0..100) as a bar of width cells
// followed by the rounded percentage.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	if math.IsNaN(percent) || percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(math.Round(percent / 100 * float64(width)))
	bar := Green(strings.Repeat("█", filled)) + Gray(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}
