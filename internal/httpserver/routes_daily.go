// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start today's deck for a tier (creates or reuses the session)
//   - GET  /daily/leaderboard → top results for a date (default today) and tier
//
// Play happens through the regular /game/flip endpoint.
// Each owner plays each tier once per UTC day (enforced by the DB).
// The deck is the same for everyone: it is shuffled from HMAC(salt, date|tier).

package httpserver

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/daily"
	"github.com/robalobadob/memory-match/internal/deck"
	"github.com/robalobadob/memory-match/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv   *Server
	store *daily.Store
	salt  string

	mu       sync.Mutex
	sessions map[string]string // owner|date|tier → session ID
	dates    map[string]string // session ID → date key
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]string),
		dates:    make(map[string]string),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

func (d *dailyServer) isDaily(id string) bool {
	return d.dateOf(id) != ""
}

func (d *dailyServer) dateOf(id string) string {
	if d == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dates[id]
}

// dealer always deals the date's deck, whatever source the session holds.
func (d *dailyServer) dealer(date string, tier game.Difficulty) game.Dealer {
	return func(pairs int, _ deck.Source) []deck.Card {
		return deck.Generate(pairs, daily.Source(date, tier, d.salt))
	}
}

type dailyNewReq struct {
	Difficulty string `json:"difficulty"`
}

// dailyNewRes is returned by /daily/new. Game is absent once played.
type dailyNewRes struct {
	GameID     string          `json:"gameId,omitempty"`
	Date       string          `json:"date"`
	Difficulty game.Difficulty `json:"difficulty"`
	Played     bool            `json:"played"`
	Game       *gameView       `json:"game,omitempty"`
}

// handleNew creates or reuses today's session for the caller and tier.
//   - If the owner already has a result for today → Played=true.
//   - Otherwise reuse the running session or deal a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	if !d.srv.decode(w, r, &req) {
		return
	}
	tier := game.Easy
	if strings.TrimSpace(req.Difficulty) != "" {
		var err error
		if tier, err = game.ParseDifficulty(req.Difficulty); err != nil {
			writeError(w, http.StatusBadRequest, "unknown_difficulty")
			return
		}
	}
	owner := d.srv.owner(w, r)
	date := daily.DateKey(d.srv.sched.Now())

	played, err := d.store.AlreadyPlayed(r.Context(), owner, date, tier)
	if err != nil {
		log.Error().Err(err).Msg("daily already played")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Difficulty: tier, Played: true})
		return
	}

	key := owner + "|" + date + "|" + string(tier)
	d.mu.Lock()
	id, ok := d.sessions[key]
	d.mu.Unlock()
	if ok {
		if sess, found := d.srv.lookup(r.Context(), owner, id); found {
			v := d.srv.view(sess.Snapshot())
			writeJSON(w, http.StatusOK, dailyNewRes{GameID: id, Date: date, Difficulty: tier, Game: &v})
			return
		}
	}

	sess := d.srv.newSession(owner,
		game.WithDealer(d.dealer(date, tier)),
		game.WithRecorder(d.srv.recorders(d.store.Recorder(date))),
	)
	if err := sess.Start(tier); err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}
	if err := d.srv.sessions.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save daily session")
		sess.Close()
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.track(r, key, sess.ID(), date)

	v := d.srv.view(sess.Snapshot())
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.ID(), Date: date, Difficulty: tier, Game: &v})
}

// track registers a daily session and drops the ones left over from
// earlier dates.
func (d *dailyServer) track(r *http.Request, key, id, date string) {
	var stale []string
	d.mu.Lock()
	d.sessions[key] = id
	d.dates[id] = date
	for k, sid := range d.sessions {
		if d.dates[sid] != date {
			stale = append(stale, sid)
			delete(d.sessions, k)
			delete(d.dates, sid)
		}
	}
	d.mu.Unlock()
	for _, sid := range stale {
		_ = d.srv.sessions.Delete(r.Context(), sid)
	}
}

// forget drops bookkeeping for evicted sessions.
func (d *dailyServer) forget(gone map[string]bool) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, id := range d.sessions {
		if gone[id] {
			delete(d.sessions, k)
			delete(d.dates, id)
		}
	}
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date       string          `json:"date"`
	Difficulty game.Difficulty `json:"difficulty"`
	Top        []daily.LBRow   `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today) and
// ?difficulty= (default easy).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.sched.Now())
	}
	tier := game.Easy
	if q := r.URL.Query().Get("difficulty"); q != "" {
		var err error
		if tier, err = game.ParseDifficulty(q); err != nil {
			writeError(w, http.StatusBadRequest, "unknown_difficulty")
			return
		}
	}
	rows, err := d.store.Leaderboard(r.Context(), date, tier, daily.DefaultLeaderboardSize)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Difficulty: tier, Top: rows})
}
