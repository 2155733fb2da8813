package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-companion/internal/countdown"
	"github.com/smokyabdulrahman/prayer-companion/internal/display"
	"github.com/smokyabdulrahman/prayer-companion/internal/geo"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

var (
	flagFormat string
	flagWatch  bool
)

// retryAfter is how long --watch waits after a failed lookup.
const retryAfter = time.Minute

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown.\nWith --watch the countdown is redrawn every second and moves on to the following prayer when it reaches zero.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "Keep running and redraw the countdown every second")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
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

	p := a.provider()
	out := cmd.OutOrStdout()

	if !flagWatch {
		now := a.clock.Now()
		next, err := a.nextPrayer(cmd.Context(), p, loc, now)
		if err != nil {
			return err
		}
		if FlagJSON {
			return writeJSON(out, nextJSONFrom(next, now, a.timeLayout()))
		}
		fmt.Fprint(out, prayer.FormatOutput(next, now, flagFormat, a.timeLayout()))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.watchNext(ctx, out, p, loc, flagFormat)
}

func (a *app) nextPrayer(ctx context.Context, p *schedule.Provider, loc *geo.Location, now time.Time) (prayer.NextPrayer, error) {
	day, err := a.dayAt(ctx, p, loc, now)
	if err != nil {
		return prayer.NextPrayer{}, err
	}
	return prayer.ResolveNext(day.Timings, now)
}

// watchNext redraws the countdown until ctx is done. When the target is
// reached the next prayer is resolved again; a new calendar date fetches a
// new schedule.
func (a *app) watchNext(ctx context.Context, w io.Writer, p *schedule.Provider, loc *geo.Location, format string) error {
	layout := a.timeLayout()
	expired := make(chan struct{}, 1)

	var (
		mu      sync.Mutex
		current prayer.NextPrayer
	)
	ticker := countdown.NewTicker(a.clock, func(t countdown.Tick) {
		mu.Lock()
		next := current
		mu.Unlock()
		if !next.Time.Equal(t.Target) {
			return
		}
		fmt.Fprint(w, display.Redraw(prayer.FormatOutput(next, t.Now, format, layout)))
		if t.Expired() {
			select {
			case expired <- struct{}{}:
			default:
			}
		}
	})
	defer ticker.Stop()

	for {
		next, err := a.nextPrayer(ctx, p, loc, a.clock.Now())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			a.log.Warn().Err(err).Dur("retry", retryAfter).Msg("cannot resolve next prayer")
			if !a.sleep(ctx, retryAfter) {
				break
			}
			continue
		}

		mu.Lock()
		current = next
		mu.Unlock()
		ticker.SetTarget(next.Time)

		select {
		case <-ctx.Done():
		case <-expired:
			continue
		}
		break
	}

	if display.Enabled() {
		fmt.Fprintln(w)
	}
	return nil
}

// sleep waits d on the app clock. It reports false when ctx ended first.
func (a *app) sleep(ctx context.Context, d time.Duration) bool {
	t := a.clock.NewTicker(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

type nextJSON struct {
	Prayer    string           `json:"prayer"`
	Time      time.Time        `json:"time"`
	Rollover  bool             `json:"rollover"`
	Remaining prayer.Remaining `json:"remaining"`
	Display   string           `json:"display"`
}

func nextJSONFrom(next prayer.NextPrayer, now time.Time, layout string) nextJSON {
	r := prayer.RemainingUntil(now, next.Time)
	return nextJSON{
		Prayer:    string(next.Name),
		Time:      next.Time,
		Rollover:  next.Rollover,
		Remaining: r,
		Display:   next.Time.Format(layout),
	}
}
