package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smokyabdulrahman/prayer-companion/internal/api"
	"github.com/smokyabdulrahman/prayer-companion/internal/countdown"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
	"github.com/smokyabdulrahman/prayer-companion/internal/schedule"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{}

// tickMessage is one frame of the countdown stream.
type tickMessage struct {
	Type          string           `json:"type"`
	Prayer        prayer.Name      `json:"prayer,omitempty"`
	Target        time.Time        `json:"target,omitempty"`
	Rollover      bool             `json:"rollover,omitempty"`
	Remaining     prayer.Remaining `json:"remaining"`
	RemainingText string           `json:"remaining_text,omitempty"`
	Status        string           `json:"status,omitempty"`
	Error         string           `json:"error,omitempty"`
	Retryable     bool             `json:"retryable,omitempty"`
}

// handleCountdown streams one tick per second toward the next prayer. Once
// the clock reaches the prayer the schedule is re-resolved and the stream
// moves on; a zero remaining time alone does not end the countdown.
// The ticker is released as soon as the client goes away.
func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	coords, method, err := s.params(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(msg tickMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			return false
		}
		return true
	}

	provider := schedule.New(s.opts.Source, s.logger)
	for ctx.Err() == nil {
		now := s.opts.Clock.Now()
		day, err := provider.Resolve(ctx, coords, now, method)
		if errors.Is(err, schedule.ErrSuperseded) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				write(errorMessage(err))
			}
			return
		}
		next, err := prayer.ResolveNext(day.Timings, now)
		if err != nil {
			write(errorMessage(err))
			return
		}

		runCtx, stop := context.WithCancel(ctx)
		countdown.Run(runCtx, s.opts.Clock, next.Time, func(tk countdown.Tick) {
			ok := write(tickMessage{
				Type:          "tick",
				Prayer:        next.Name,
				Target:        tk.Target,
				Rollover:      next.Rollover,
				Remaining:     tk.Remaining,
				RemainingText: prayer.FormatRemaining(tk.Remaining),
			})
			if !ok || tk.Reached() {
				stop()
			}
		})
		stop()
	}
}

func errorMessage(err error) tickMessage {
	var fetchErr *api.FetchError
	switch {
	case errors.Is(err, schedule.ErrAwaitingLocation):
		return tickMessage{Type: "status", Status: "awaiting_location"}
	case errors.As(err, &fetchErr):
		return tickMessage{Type: "error", Error: err.Error(), Retryable: true}
	default:
		return tickMessage{Type: "error", Error: err.Error()}
	}
}
