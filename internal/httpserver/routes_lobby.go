// internal/httpserver/routes_lobby.go
//
// Lobby endpoints:
//   POST /games              -> create a game; the caller becomes host
//   GET  /games/{id}         -> game view (hidden cards masked per viewer)
//   POST /games/{id}/join    -> join a team, receive a player token
//   POST /games/{id}/start   -> host only
//   POST /games/{id}/rounds  -> host only, next round in SETUP
//   POST /players/me/status  -> change own (or, as host, another) status

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/codebreaker/internal/engine"
	"github.com/robalobadob/codebreaker/internal/game"
	"github.com/robalobadob/codebreaker/internal/identity"
)

func (s *Server) mountLobbyRoutes(r chi.Router) {
	r.Post("/games/{id}/start", s.handleStartGame)
	r.Post("/games/{id}/rounds", s.handleCreateRound)
	r.Post("/players/me/status", s.handlePlayerStatus)
}

// settingsReq mirrors game.Settings; AutoOpenTurns defaults to true.
type settingsReq struct {
	TeamCount         int    `json:"teamCount"`
	RoundSize         int    `json:"roundSize"`
	TrapCount         int    `json:"trapCount"`
	RoundsToWin       int    `json:"roundsToWin"`
	RotationWindow    int    `json:"rotationWindow"`
	MinPlayersPerTeam int    `json:"minPlayersPerTeam"`
	DeckID            string `json:"deckId"`
	Language          string `json:"language"`
	AutoOpenTurns     *bool  `json:"autoOpenTurns"`
}

func (q settingsReq) settings() game.Settings {
	s := game.Settings{
		TeamCount:         q.TeamCount,
		RoundSize:         q.RoundSize,
		TrapCount:         q.TrapCount,
		RoundsToWin:       q.RoundsToWin,
		RotationWindow:    q.RotationWindow,
		MinPlayersPerTeam: q.MinPlayersPerTeam,
		DeckID:            q.DeckID,
		Language:          q.Language,
		AutoOpenTurns:     true,
	}
	if q.AutoOpenTurns != nil {
		s.AutoOpenTurns = *q.AutoOpenTurns
	}
	return s
}

type createGameReq struct {
	Settings settingsReq `json:"settings"`
	Teams    []string    `json:"teams"`
	Name     string      `json:"name"`
	Passcode string      `json:"passcode"`
}

// seatRes is returned to a player who just took a seat.
type seatRes struct {
	Game      gameView    `json:"game"`
	Player    game.Player `json:"player"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, host, err := s.eng.CreateGame(r.Context(), engine.CreateGameInput{
		Settings:  req.Settings.settings(),
		TeamNames: req.Teams,
		HostName:  req.Name,
		Passcode:  req.Passcode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.seat(w, r, http.StatusCreated, g, host)
}

type joinReq struct {
	Name     string `json:"name"`
	TeamID   string `json:"teamId"`
	Passcode string `json:"passcode"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, p, err := s.eng.JoinGame(r.Context(), chi.URLParam(r, "id"), req.Name, req.TeamID, req.Passcode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.seat(w, r, http.StatusOK, g, p)
}

// seat issues the player token, sets the cookie and writes the response.
func (s *Server) seat(w http.ResponseWriter, r *http.Request, status int, g *game.Game, p game.Player) {
	tok, exp, err := s.ids.Issue(identity.Claims{GameID: g.ID, PlayerID: p.ID, TeamID: p.TeamID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	identity.SetCookie(w, tok, exp, s.opts.SecureCookies)
	writeJSON(w, status, seatRes{Game: viewGame(g, p.ID), Player: p, Token: tok, ExpiresAt: exp})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.eng.Game(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	viewer := ""
	if c, ok := identity.FromContext(r.Context()); ok && c.GameID == id {
		viewer = c.PlayerID
	}
	writeJSON(w, http.StatusOK, viewGame(g, viewer))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.eng.StartGame(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewGame(g, actor.PlayerID))
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, err := s.eng.CreateRound(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewRound(&round, actor.PlayerID))
}

type statusReq struct {
	PlayerID string            `json:"playerId"` // empty = caller
	Status   game.PlayerStatus `json:"status"`
}

func (s *Server) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = actor.PlayerID
	}
	p, err := s.eng.SetPlayerStatus(r.Context(), actor, req.PlayerID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// actor resolves the token holder against the stored game.
func (s *Server) actor(r *http.Request) (game.Actor, error) {
	c, ok := identity.FromContext(r.Context())
	if !ok {
		return game.Actor{}, &game.UnauthorizedActionError{Action: "act", Reason: "no player token"}
	}
	return s.eng.ResolveActor(r.Context(), c.GameID, c.PlayerID)
}
