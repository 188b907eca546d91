// internal/httpserver/routes_turns.go
//
// Turn endpoints:
//   POST /turns/{id}/clue     -> {word, target}; team clue-giver only
//   POST /turns/{id}/guesses  -> {cardId}; team guessers only
//   POST /turns/{id}/end      -> stop guessing

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) mountTurnRoutes(r chi.Router) {
	r.Post("/turns/{id}/clue", s.handleClue)
	r.Post("/turns/{id}/guesses", s.handleGuess)
	r.Post("/turns/{id}/end", s.handleEndTurn)
}

type clueReq struct {
	Word   string `json:"word"`
	Target int    `json:"target"`
}

func (s *Server) handleClue(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req clueReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.eng.GiveClue(r.Context(), actor, chi.URLParam(r, "id"), req.Word, req.Target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type guessReq struct {
	CardID string `json:"cardId"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req guessReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.eng.SubmitGuess(r.Context(), actor, chi.URLParam(r, "id"), req.CardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tc, err := s.eng.EndTurn(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}
