// internal/httpserver/routes_game.go
//
// Free-play game endpoints. Each command returns the session view:
//   - POST /game/new   {difficulty}          → new session, dealt and running
//   - POST /game/flip  {gameId, cardId}      → {accepted, game}
//   - POST /game/reset {gameId}              → session back to idle
//   - POST /game/start {gameId, difficulty}  → fresh deal on the same session
//   - GET  /game/{id}                        → current view
//
// Face-down cards are sent without their symbol.

package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/game"
)

// cardView is a card as the client sees it.
type cardView struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol,omitempty"`
	Flipped bool   `json:"isFlipped"`
	Matched bool   `json:"isMatched"`
}

// summary is the end-of-game panel: moves, time and score.
type summary struct {
	Moves    int         `json:"moves"`
	Time     game.Millis `json:"time"`
	TimeText string      `json:"timeText"`
	Score    int         `json:"score"`
}

// gameView is the session as the client sees it.
type gameView struct {
	ID           string          `json:"gameId"`
	Phase        game.Phase      `json:"phase"`
	Difficulty   game.Difficulty `json:"difficulty,omitempty"`
	Columns      int             `json:"columns,omitempty"`
	Cards        []cardView      `json:"cards"`
	MatchedPairs int             `json:"matchedPairs"`
	TotalPairs   int             `json:"totalPairs"`
	Moves        int             `json:"moves"`
	Time         game.Millis     `json:"time"`
	TimeText     string          `json:"timeText"`
	Summary      *summary        `json:"summary,omitempty"`
	Daily        string          `json:"daily,omitempty"` // date key of a daily game
}

// view renders snap. While a game is running the time is read from the
// clock rather than the last tick.
func (s *Server) view(snap game.Snapshot) gameView {
	elapsed := snap.Elapsed.Duration()
	if snap.Active() && !snap.StartedAt.IsZero() {
		elapsed = s.sched.Now().Sub(snap.StartedAt)
	}
	v := gameView{
		ID:           snap.ID,
		Phase:        snap.Phase,
		Difficulty:   snap.Difficulty,
		Columns:      snap.Columns,
		Cards:        make([]cardView, len(snap.Cards)),
		MatchedPairs: snap.MatchedPairs,
		TotalPairs:   snap.TotalPairs,
		Moves:        snap.Moves,
		Time:         game.MillisOf(elapsed),
		TimeText:     game.FormatElapsed(elapsed),
		Daily:        s.daily.dateOf(snap.ID),
	}
	for i, c := range snap.Cards {
		cv := cardView{ID: c.ID, Flipped: c.Flipped, Matched: c.Matched}
		if c.Flipped || c.Matched {
			cv.Symbol = c.Symbol
		}
		v.Cards[i] = cv
	}
	if snap.Phase == game.PhaseComplete {
		v.Summary = &summary{Moves: snap.Moves, Time: snap.Elapsed, TimeText: game.FormatElapsed(snap.Elapsed.Duration()), Score: snap.Score}
	}
	return v
}

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/flip", s.handleFlip)
	r.Post("/game/reset", s.handleReset)
	r.Post("/game/start", s.handleStart)
	r.Get("/game/{id}", s.handleGetGame)
}

type newGameReq struct {
	Difficulty string `json:"difficulty" validate:"required"`
}

// handleNewGame deals a new session for the caller. The caller's previous
// free-play session is dropped.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if !s.decode(w, r, &req) {
		return
	}
	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}

	owner := s.owner(w, r)
	sess := s.newSession(owner)
	if err := sess.Start(d); err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		sess.Close()
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.replaceLive(r.Context(), owner, sess.ID())

	writeJSON(w, http.StatusOK, s.view(sess.Snapshot()))
}

// replaceLive records id as owner's free-play session and drops the old one.
func (s *Server) replaceLive(ctx context.Context, owner, id string) {
	s.mu.Lock()
	prev := s.live[owner]
	s.live[owner] = id
	s.mu.Unlock()
	if prev != "" && prev != id {
		_ = s.sessions.Delete(ctx, prev)
	}
}

type flipReq struct {
	GameID string `json:"gameId" validate:"required"`
	CardID string `json:"cardId" validate:"required"`
}

type flipRes struct {
	Accepted bool     `json:"accepted"`
	Game     gameView `json:"game"`
}

// handleFlip applies a flip. Ignored flips are not errors: they come back
// with accepted=false and the unchanged game.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.lookup(r.Context(), s.owner(w, r), req.GameID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	accepted := sess.Flip(r.Context(), req.CardID)
	writeJSON(w, http.StatusOK, flipRes{Accepted: accepted, Game: s.view(sess.Snapshot())})
}

type gameReq struct {
	GameID     string `json:"gameId" validate:"required"`
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req gameReq
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.lookup(r.Context(), s.owner(w, r), req.GameID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if s.daily.isDaily(sess.ID()) {
		writeError(w, http.StatusConflict, "daily_locked")
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, s.view(sess.Snapshot()))
}

// handleStart deals again on an existing session; an empty difficulty
// keeps the current one.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req gameReq
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.lookup(r.Context(), s.owner(w, r), req.GameID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if s.daily.isDaily(sess.ID()) {
		writeError(w, http.StatusConflict, "daily_locked")
		return
	}
	d := sess.Snapshot().Difficulty
	if req.Difficulty != "" {
		var err error
		if d, err = game.ParseDifficulty(req.Difficulty); err != nil {
			writeError(w, http.StatusBadRequest, "unknown_difficulty")
			return
		}
	}
	if err := sess.Start(d); err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess.Snapshot()))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.Context(), s.owner(w, r), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess.Snapshot()))
}

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	type row struct {
		Difficulty game.Difficulty `json:"difficulty"`
		game.Tier
	}
	out := make([]row, 0, 3)
	for _, d := range game.Difficulties() {
		t, _ := game.TierFor(d)
		out = append(out, row{Difficulty: d, Tier: t})
	}
	writeJSON(w, http.StatusOK, out)
}
