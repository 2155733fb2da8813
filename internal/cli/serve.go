package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/prayer-companion/internal/notify"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/server"
)

var flagListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, countdown stream and prayer notifier",
		Long: "Serve the schedule over HTTP (/api/v1/...), stream live countdowns on /ws/countdown,\n" +
			"expose Prometheus metrics on /metrics, and announce every upcoming prayer\n" +
			"to the configured MQTT broker (or the log when none is set).",
		RunE: runServe,
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides config listen_addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "listen") {
		cfg.ListenAddr = flagListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Requests may carry their own coordinates, so a failed detection only
	// leaves the defaults empty.
	var coords *prayer.Coordinates
	if loc, err := a.locate(ctx); err != nil {
		a.log.Warn().Err(err).Msg("no default location; requests must supply latitude and longitude")
	} else {
		c := loc.Coordinates()
		coords = &c
	}

	srv := server.New(server.Options{
		Source:      a.cache,
		Qibla:       a.client,
		Clock:       a.clock,
		Coordinates: coords,
		Method:      a.method(),
		TimeFormat:  a.timeLayout(),
		Log:         a.log,
	})

	publisher, closePublisher, err := a.publisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	announcer := &notify.Announcer{
		Clock:      a.clock,
		Timings:    a.timingsFunc(coords),
		Publisher:  publisher,
		Lead:       time.Duration(*cfg.NotifyBefore) * time.Minute,
		TimeFormat: a.timeLayout(),
		Log:        a.log.With().Str("component", "announcer").Logger(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(gctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := announcer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// publisher picks MQTT when a broker is configured and the log otherwise.
func (a *app) publisher() (notify.Publisher, func(), error) {
	if a.cfg.MQTTBroker == "" {
		return notify.LogPublisher{Log: a.log}, func() {}, nil
	}
	client, err := notify.DialMQTT(a.cfg.MQTTBroker, "prayer-times-"+uuid.NewString()[:8], a.log)
	if err != nil {
		return nil, nil, err
	}
	p := notify.NewMQTTPublisher(client, a.cfg.MQTTTopic)
	return p, p.Close, nil
}

// timingsFunc feeds the announcer from its own provider.
func (a *app) timingsFunc(coords *prayer.Coordinates) notify.TimingsFunc {
	p := a.provider()
	method := a.method()
	return func(ctx context.Context, now time.Time) (prayer.DailyTimings, error) {
		day, err := p.Resolve(ctx, coords, now, method)
		if err != nil {
			return nil, err
		}
		return day.Timings, nil
	}
}
