package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/memory-match/internal/game"
)

// mountScores registers the caller's best-score lists:
//   - GET /scores               → every tier
//   - GET /scores/{difficulty}  → one tier, best first
func (s *Server) mountScores(r chi.Router) {
	r.Get("/scores", s.handleAllScores)
	r.Get("/scores/{difficulty}", s.handleScores)
}

type scoresRes struct {
	Difficulty game.Difficulty    `json:"difficulty"`
	Scores     []game.ScoreRecord `json:"scores"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	d, err := game.ParseDifficulty(chi.URLParam(r, "difficulty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}
	l := s.book.For(r.Context(), s.owner(w, r))
	writeJSON(w, http.StatusOK, scoresRes{Difficulty: d, Scores: l.Scores(d)})
}

func (s *Server) handleAllScores(w http.ResponseWriter, r *http.Request) {
	l := s.book.For(r.Context(), s.owner(w, r))
	writeJSON(w, http.StatusOK, l.All())
}
