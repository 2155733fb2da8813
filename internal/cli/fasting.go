package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-companion/internal/display"
	"github.com/smokyabdulrahman/prayer-companion/internal/fasting"
	"github.com/smokyabdulrahman/prayer-companion/internal/geo"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

const progressWidth = 24

var flagFastingWatch bool

func newFastingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fasting",
		Aliases: []string{"ramadan"},
		Short:   "Show fasting progress between Fajr and Maghrib",
		Long:    "Display how far through today's fast you are and the time left until Iftar (Maghrib) or, after Iftar, until the next Fajr.",
		RunE:    runFasting,
	}
	cmd.Flags().BoolVar(&flagFastingWatch, "watch", false, "Keep running and redraw the progress every second")
	return cmd
}

func runFasting(cmd *cobra.Command, args []string) error {
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

	if !flagFastingWatch {
		now := a.clock.Now()
		day, err := a.dayAt(cmd.Context(), p, loc, now)
		if err != nil {
			return err
		}
		fajr, maghrib, err := fasting.Window(day.Timings, now)
		if err != nil {
			return err
		}
		status := fasting.Evaluate(now, fajr, maghrib)
		if FlagJSON {
			return writeJSON(out, status)
		}
		fmt.Fprintln(out, fastingLine(status, a.timeLayout()))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.watchFasting(ctx, out, p, loc)
}

// watchFasting redraws the progress every second. The window is derived
// again once the calendar date changes.
func (a *app) watchFasting(ctx context.Context, w io.Writer, p *schedule.Provider, loc *geo.Location) error {
	layout := a.timeLayout()
	tracker := fasting.NewTracker(a.clock)

	for ctx.Err() == nil {
		now := a.clock.Now()
		day, err := a.dayAt(ctx, p, loc, now)
		if err == nil {
			var fajr, maghrib time.Time
			fajr, maghrib, err = fasting.Window(day.Timings, now)
			if err == nil {
				runCtx, cancel := context.WithCancel(ctx)
				tracker.Run(runCtx, fajr, maghrib, func(s fasting.Status) {
					fmt.Fprint(w, display.Redraw(fastingLine(s, layout)))
					if !sameDate(s.Now, now) {
						cancel()
					}
				})
				cancel()
				continue
			}
		}
		if ctx.Err() != nil {
			break
		}
		a.log.Warn().Err(err).Dur("retry", retryAfter).Msg("cannot resolve fasting window")
		if !a.sleep(ctx, retryAfter) {
			break
		}
	}

	if display.Enabled() {
		fmt.Fprintln(w)
	}
	return nil
}

// fastingLine renders s on a single line.
func fastingLine(s fasting.Status, layout string) string {
	switch s.State {
	case fasting.Fasting:
		return fmt.Sprintf("%s %s  Iftar at %s, in %s", display.Bold("Fasting"),
			display.ProgressBar(s.Progress, progressWidth), s.Maghrib.Format(layout), display.Accent(display.Clock(s.Remaining)))
	case fasting.AfterFast:
		return fmt.Sprintf("%s %s  Fajr at %s, in %s", display.Green("Fast complete"),
			display.ProgressBar(s.Progress, progressWidth), s.Target.Format(layout), display.Accent(display.Clock(s.Remaining)))
	default:
		return fmt.Sprintf("%s  Fajr at %s", display.Gray("Fast not started"), s.Fajr.Format(layout))
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
