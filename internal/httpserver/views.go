// internal/httpserver/views.go
//
// Player-facing projections of a game.
// Unrevealed cards carry their category and team only for the round's
// clue-givers, or for everyone once the round has completed. The lobby
// passcode hash never leaves the server.

package httpserver

import (
	"time"

	"github.com/robalobadob/codebreaker/internal/game"
)

type gameView struct {
	ID           string          `json:"id"`
	Status       game.GameStatus `json:"status"`
	Settings     game.Settings   `json:"settings"`
	HostID       string          `json:"hostId"`
	HasPasscode  bool            `json:"hasPasscode"`
	Teams        []game.Team     `json:"teams"`
	Players      []game.Player   `json:"players"`
	Rounds       []roundView     `json:"rounds"`
	WinnerTeamID string          `json:"winnerTeamId,omitempty"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Me           *game.Actor     `json:"me,omitempty"`
}

type roundView struct {
	ID             string                `json:"id"`
	Seq            int                   `json:"seq"`
	Status         game.RoundStatus      `json:"status"`
	StartingTeamID string                `json:"startingTeamId"`
	Distribution   *game.Distribution    `json:"distribution,omitempty"`
	Cards          []cardView            `json:"cards"`
	Roles          []game.RoleAssignment `json:"roles"`
	Turns          []game.Turn           `json:"turns"`
	WinnerTeamID   string                `json:"winnerTeamId,omitempty"`
	EndReason      game.RoundEndReason   `json:"endReason,omitempty"`
	StartedAt      *time.Time            `json:"startedAt,omitempty"`
	CompletedAt    *time.Time            `json:"completedAt,omitempty"`
}

type cardView struct {
	ID       string        `json:"id"`
	Position int           `json:"position"`
	Word     string        `json:"word"`
	Category game.Category `json:"category,omitempty"`
	TeamID   string        `json:"teamId,omitempty"`
	Revealed bool          `json:"revealed"`
}

// viewGame projects g for viewerID ("" for spectators).
func viewGame(g *game.Game, viewerID string) gameView {
	v := gameView{
		ID:           g.ID,
		Status:       g.Status,
		Settings:     g.Settings,
		HostID:       g.HostID,
		HasPasscode:  g.PasscodeHash != "",
		Teams:        g.Teams,
		Players:      g.Players,
		Rounds:       make([]roundView, 0, len(g.Rounds)),
		WinnerTeamID: g.WinnerTeamID,
		Version:      g.Version,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	for i := range g.Rounds {
		v.Rounds = append(v.Rounds, viewRound(&g.Rounds[i], viewerID))
	}
	if p, ok := g.Player(viewerID); ok {
		me := game.Actor{GameID: g.ID, PlayerID: p.ID, TeamID: p.TeamID}
		if r, ok := g.CurrentRound(); ok {
			me.Role, _ = r.RoleOf(p.ID)
		}
		v.Me = &me
	}
	return v
}

func viewRound(r *game.Round, viewerID string) roundView {
	role, _ := r.RoleOf(viewerID)
	seeAll := r.Status == game.RoundCompleted || role == game.RoleClueGiver

	v := roundView{
		ID:             r.ID,
		Seq:            r.Seq,
		Status:         r.Status,
		StartingTeamID: r.StartingTeamID,
		Distribution:   r.Distribution,
		Cards:          make([]cardView, 0, len(r.Cards)),
		Roles:          r.Roles,
		Turns:          r.Turns,
		WinnerTeamID:   r.WinnerTeamID,
		EndReason:      r.EndReason,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
	for _, c := range r.Cards {
		cv := cardView{ID: c.ID, Position: c.Position, Word: c.Word, Revealed: c.Revealed}
		if seeAll || c.Revealed {
			cv.Category = c.Category
			cv.TeamID = c.TeamID
		}
		v.Cards = append(v.Cards, cv)
	}
	return v
}
