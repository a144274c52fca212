// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, panic recovery, JSON, CORS).
//   - Public endpoints: "/", "/health", "/difficulties".
//   - Game endpoints (optional auth): /game/new, /game/flip, /game/reset,
//     /game/start, /game/{id}, /game/{id}/events (SSE).
//   - Best scores: /scores, /scores/{difficulty}.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Every session belongs to an owner: the logged-in user's ID, or the
//     guest's anonymous cookie ID. Other owners get 404.
//   - The event stream is mounted outside the timeout group; it lives as
//     long as the client stays connected.
//   - RunJanitor evicts sessions idle for longer than SESSION_TTL.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/config"
	"github.com/robalobadob/memory-match/internal/game"
	"github.com/robalobadob/memory-match/internal/history"
	"github.com/robalobadob/memory-match/internal/kv"
	"github.com/robalobadob/memory-match/internal/ledger"
	"github.com/robalobadob/memory-match/internal/store"
)

// Server bundles router, live session registry, ledgers and DB handle.
type Server struct {
	r        *chi.Mux
	http     *http.Server
	cfg      config.Config
	sessions store.Store
	db       *sql.DB
	book     *ledger.Book
	history  *history.Store
	users    *userStore
	daily    *dailyServer
	sched    game.Scheduler
	validate *validator.Validate

	keepAlive time.Duration

	mu   sync.Mutex
	live map[string]string // owner → current free-play session ID
}

// Option tweaks a Server.
type Option func(*Server)

// WithScheduler replaces the clock handed to every new session.
func WithScheduler(sc game.Scheduler) Option { return func(s *Server) { s.sched = sc } }

// WithKeepAlive sets the comment interval on idle event streams.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st store.Store, db *sql.DB, book *ledger.Book, opts ...Option) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		cfg:       *cfg,
		sessions:  st,
		db:        db,
		book:      book,
		history:   history.NewStore(db),
		users:     &userStore{db: db},
		sched:     game.RealScheduler{},
		validate:  newValidator(),
		keepAlive: 15 * time.Second,
		live:      make(map[string]string),
	}
	if s.book == nil {
		s.book = ledger.NewBook(kv.NewMemory())
	}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog()...)  // zerolog access lines
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(cors(s.cfg.ClientOrigin))

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	// Long-lived stream: no handler timeout.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "memory-match",
				"endpoints": []string{
					"/health", "/difficulties", "POST /game/new", "POST /game/flip",
					"GET /game/{id}/events", "/scores/{difficulty}", "/daily/*", "/auth/*",
				},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/difficulties", s.handleDifficulties)

		// Game and score endpoints: OPTIONAL AUTH (guests can play)
		opt := r.With(s.withOptionalAuth())
		s.mountGame(opt)
		s.mountScores(opt)
		s.mountDaily(opt)

		s.mountAuthRoutes(r)
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// sweeper is implemented by session stores that can evict idle sessions.
type sweeper interface {
	Sweep(ctx context.Context, ttl time.Duration) []string
}

// SweepSessions evicts sessions idle for longer than the configured TTL and
// forgets their live and daily bookkeeping. It returns the eviction count.
func (s *Server) SweepSessions(ctx context.Context) int {
	sw, ok := s.sessions.(sweeper)
	if !ok || s.cfg.SessionTTL <= 0 {
		return 0
	}
	ids := sw.Sweep(ctx, s.cfg.SessionTTL)
	if len(ids) == 0 {
		return 0
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	s.mu.Lock()
	for owner, id := range s.live {
		if gone[id] {
			delete(s.live, owner)
		}
	}
	s.mu.Unlock()
	s.daily.forget(gone)

	log.Info().Int("evicted", len(ids)).Msg("swept idle sessions")
	return len(ids)
}

// RunJanitor calls SweepSessions every interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepSessions(ctx)
		}
	}
}

// newSession builds a session for owner with the server's clock, delays
// and the default recorders (owner's ledger + game history).
func (s *Server) newSession(owner string, extra ...game.Option) *game.Session {
	opts := []game.Option{
		game.WithOwner(owner),
		game.WithScheduler(s.sched),
		game.WithMismatchDelay(s.cfg.MismatchDelay),
		game.WithTickInterval(s.cfg.TickInterval),
		game.WithRecorder(s.recorders()),
	}
	return game.NewSession(append(opts, extra...)...)
}

func (s *Server) recorders(extra ...game.Recorder) game.Recorder {
	rs := game.Recorders{s.book, s.history}
	return append(rs, extra...)
}

// lookup loads a session that belongs to owner. Anything else is a 404.
func (s *Server) lookup(ctx context.Context, owner, id string) (*game.Session, bool) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("gameId", id).Msg("load session")
		}
		return nil, false
	}
	if sess.Owner() != owner {
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst zero.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

// writeError writes {"error": code}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
