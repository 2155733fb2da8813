// Package server exposes the schedule pipeline over HTTP and streams live
// countdowns over websockets.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

// QiblaFinder looks up the bearing to the Kaaba.
type QiblaFinder interface {
	FetchQibla(ctx context.Context, lat, lon float64) (float64, error)
}

// Options wires the server's collaborators.
type Options struct {
	Source schedule.Source
	Qibla  QiblaFinder
	Clock  clock.Clock
	// Coordinates and Method are used when a request does not supply them.
	Coordinates *prayer.Coordinates
	Method      int
	TimeFormat  string
	Log         zerolog.Logger
}

// Server routes HTTP requests to the schedule pipeline.
type Server struct {
	opts   Options
	logger zerolog.Logger
	mux    *mux.Router
}

// New builds a Server with routes and middleware registered.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}
	s := &Server{opts: opts, logger: opts.Log, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/timings", s.handleTimings).Methods(http.MethodGet)
	api.HandleFunc("/next", s.handleNext).Methods(http.MethodGet)
	api.HandleFunc("/fasting", s.handleFasting).Methods(http.MethodGet)
	api.HandleFunc("/qibla", s.handleQibla).Methods(http.MethodGet)

	s.mux.HandleFunc("/ws/countdown", s.handleCountdown)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
