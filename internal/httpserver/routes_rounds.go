// internal/httpserver/routes_rounds.go
//
// Round setup endpoints (host only):
//   POST /rounds/{id}/cards   -> deal the board (size/teams/traps default to the game settings)
//   POST /rounds/{id}/redeal  -> fresh words, same distribution
//   POST /rounds/{id}/roles   -> pick clue-givers
//   POST /rounds/{id}/start   -> begin play, first turn opens
//   POST /rounds/{id}/turns   -> open the next team's turn after one ends (auto-open off)
//
// Responses carry the round as the caller may see it.

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/codebreaker/internal/game"
)

func (s *Server) mountRoundRoutes(r chi.Router) {
	r.Post("/rounds/{id}/cards", s.handleAllocate)
	r.Post("/rounds/{id}/redeal", s.roundAction(func(s *Server, r *http.Request, actor game.Actor, roundID string) error {
		_, err := s.eng.RedealCards(r.Context(), actor, roundID)
		return err
	}))
	r.Post("/rounds/{id}/roles", s.roundAction(func(s *Server, r *http.Request, actor game.Actor, roundID string) error {
		_, err := s.eng.AssignRoles(r.Context(), actor, roundID)
		return err
	}))
	r.Post("/rounds/{id}/start", s.roundAction(func(s *Server, r *http.Request, actor game.Actor, roundID string) error {
		_, err := s.eng.StartRound(r.Context(), actor, roundID)
		return err
	}))
	r.Post("/rounds/{id}/turns", s.handleOpenTurn)
}

// roundAction runs a host action on a round and answers with the round.
func (s *Server) roundAction(fn func(s *Server, r *http.Request, actor game.Actor, roundID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.actor(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		roundID := chi.URLParam(r, "id")
		if err := fn(s, r, actor, roundID); err != nil {
			writeError(w, r, err)
			return
		}
		s.writeRound(w, r, roundID, actor.PlayerID)
	}
}

func (s *Server) writeRound(w http.ResponseWriter, r *http.Request, roundID, viewerID string) {
	g, err := s.eng.GameByRound(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, ok := g.Round(roundID)
	if !ok {
		writeError(w, r, &game.NotFoundError{Kind: "round", ID: roundID})
		return
	}
	writeJSON(w, http.StatusOK, viewRound(round, viewerID))
}

type allocateReq struct {
	Size      *int `json:"size"`
	TeamCount *int `json:"teamCount"`
	TrapCount *int `json:"trapCount"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req allocateReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	roundID := chi.URLParam(r, "id")
	g, err := s.eng.GameByRound(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, teams, traps := g.Settings.RoundSize, len(g.Teams), g.Settings.TrapCount
	if req.Size != nil {
		size = *req.Size
	}
	if req.TeamCount != nil {
		teams = *req.TeamCount
	}
	if req.TrapCount != nil {
		traps = *req.TrapCount
	}
	if _, err := s.eng.AllocateCards(r.Context(), actor, roundID, size, teams, traps); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeRound(w, r, roundID, actor.PlayerID)
}

type openTurnReq struct {
	TeamID string `json:"teamId"`
}

func (s *Server) handleOpenTurn(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req openTurnReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.eng.OpenTurn(r.Context(), actor, chi.URLParam(r, "id"), req.TeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
