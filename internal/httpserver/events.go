package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/memory-match/internal/game"
)

// eventBuffer bounds how far a slow client may fall behind before events
// are dropped for it.
const eventBuffer = 64

type tickPayload struct {
	Time     game.Millis `json:"time"`
	TimeText string      `json:"timeText"`
}

type wonPayload struct {
	Summary summary  `json:"summary"`
	Game    gameView `json:"game"`
}

// handleEvents streams a session's notifications as Server-Sent Events:
// "state" (full view), "tick" (elapsed time) and "won" (end summary).
// The current view is sent first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.Context(), s.owner(w, r), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	logger := hlog.FromRequest(r)

	events := make(chan game.Event, eventBuffer)
	unsubscribe := sess.Subscribe(func(ev game.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn().Str("gameId", sess.ID()).Str("kind", string(ev.Kind)).Msg("event stream behind; dropping event")
		}
	})
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, game.EventState, s.view(sess.Snapshot())); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-events:
			if err := writeEvent(w, ev.Kind, s.payload(ev)); err != nil {
				logger.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
		flusher.Flush()
	}
}

func (s *Server) payload(ev game.Event) any {
	switch ev.Kind {
	case game.EventTick:
		return tickPayload{Time: game.MillisOf(ev.Elapsed), TimeText: game.FormatElapsed(ev.Elapsed)}
	case game.EventWon:
		v := s.view(*ev.Snapshot)
		rec := ev.Result.Record
		return wonPayload{
			Summary: summary{Moves: rec.Moves, Time: rec.Elapsed, TimeText: game.FormatElapsed(rec.Elapsed.Duration()), Score: rec.Score},
			Game:    v,
		}
	default:
		return s.view(*ev.Snapshot)
	}
}

// writeEvent frames v as JSON under the event name kind.
func writeEvent(w io.Writer, kind game.EventKind, v any) error {
	return sse.Encode(w, sse.Event{Event: string(kind), Data: v})
}
