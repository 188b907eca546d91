// internal/game/types.go
//
// Core type definitions for the codebreaker rules engine.
// Defines:
//   - Status enums for games, rounds, turns and players.
//   - Card categories, functional roles and guess outcomes.
//   - The Game aggregate and everything it owns (teams, players,
//     rounds, cards, role assignments, turns, clues, guesses).
//
// The aggregate is a plain value tree. Transitions in this package never
// mutate their input; they work on a Clone and hand the new snapshot back
// to the caller, which decides whether to persist it.

package game

import (
	"strings"
	"time"
)

// GameStatus is the lifecycle state of a Game.
type GameStatus string

const (
	GameLobby      GameStatus = "LOBBY"
	GameInProgress GameStatus = "IN_PROGRESS"
	GameCompleted  GameStatus = "COMPLETED"
)

// RoundStatus is the lifecycle state of a Round.
type RoundStatus string

const (
	RoundSetup      RoundStatus = "SETUP"
	RoundInProgress RoundStatus = "IN_PROGRESS"
	RoundCompleted  RoundStatus = "COMPLETED"
)

// TurnPhase tracks a turn through OPEN (no clue yet), CLUED (awaiting
// guesses) and COMPLETED.
type TurnPhase string

const (
	PhaseOpen      TurnPhase = "OPEN"
	PhaseClued     TurnPhase = "CLUED"
	PhaseCompleted TurnPhase = "COMPLETED"
)

// TurnStatus is the coarse view of a turn: ACTIVE until it completes.
type TurnStatus string

const (
	TurnActive    TurnStatus = "ACTIVE"
	TurnCompleted TurnStatus = "COMPLETED"
)

// TurnEndReason records why a turn stopped accepting guesses.
type TurnEndReason string

const (
	EndedByPlayer      TurnEndReason = "ENDED_BY_PLAYER"
	EndedNoGuessesLeft TurnEndReason = "NO_GUESSES_LEFT"
	EndedWrongGuess    TurnEndReason = "WRONG_GUESS"
	EndedTrap          TurnEndReason = "TRAP"
	EndedRoundWon      TurnEndReason = "ROUND_WON"
	EndedSkipped       TurnEndReason = "SKIPPED"
)

// RoundEndReason records how a round was decided.
type RoundEndReason string

const (
	RoundEndTrap     RoundEndReason = "TRAP_REVEALED"
	RoundEndAllFound RoundEndReason = "ALL_TEAM_CARDS_FOUND"
)

// PlayerStatus is the connectivity flag of a player. Only ACTIVE players
// are eligible for roles.
type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "ACTIVE"
	PlayerInactive PlayerStatus = "INACTIVE"
)

// Valid reports whether s is a known player status.
func (s PlayerStatus) Valid() bool {
	return s == PlayerActive || s == PlayerInactive
}

// Category is the hidden affiliation of a card.
type Category string

const (
	CategoryTeam    Category = "TEAM"
	CategoryNeutral Category = "NEUTRAL"
	CategoryTrap    Category = "TRAP"
)

// Role is the functional role a player holds within one round.
// There is deliberately no "none" value: a player without an assignment
// simply has no role in that round.
type Role string

const (
	RoleClueGiver Role = "CLUE_GIVER"
	RoleGuesser   Role = "GUESSER"
	RoleObserver  Role = "OBSERVER"
)

// Outcome is the result of a single guess.
type Outcome string

const (
	OutcomeCorrectTeam Outcome = "CORRECT_TEAM"
	OutcomeOtherTeam   Outcome = "OTHER_TEAM"
	OutcomeNeutral     Outcome = "NEUTRAL"
	OutcomeTrap        Outcome = "TRAP"
)

// Game is the aggregate root. It owns every other entity.
type Game struct {
	ID           string     `json:"id"`
	Status       GameStatus `json:"status"`
	Settings     Settings   `json:"settings"`
	HostID       string     `json:"hostId,omitempty"`
	PasscodeHash string     `json:"passcodeHash,omitempty"`
	Teams        []Team     `json:"teams"`
	Players      []Player   `json:"players"`
	Rounds       []Round    `json:"rounds"`
	WinnerTeamID string     `json:"winnerTeamId,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Team belongs to exactly one game. Order is its position in play order.
type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	Score     int    `json:"score"`
	RoundsWon int    `json:"roundsWon"`
}

// Player belongs to one game and one team. Seq is the join order and is
// used to break ties deterministically.
type Player struct {
	ID       string       `json:"id"`
	TeamID   string       `json:"teamId"`
	Name     string       `json:"name"`
	Status   PlayerStatus `json:"status"`
	Seq      int          `json:"seq"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// Round is one board of play.
type Round struct {
	ID             string           `json:"id"`
	Seq            int              `json:"seq"`
	Status         RoundStatus      `json:"status"`
	StartingTeamID string           `json:"startingTeamId"`
	Distribution   *Distribution    `json:"distribution,omitempty"`
	Cards          []Card           `json:"cards"`
	Roles          []RoleAssignment `json:"roles"`
	Turns          []Turn           `json:"turns"`
	WinnerTeamID   string           `json:"winnerTeamId,omitempty"`
	EndReason      RoundEndReason   `json:"endReason,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}

// Card is immutable once dealt except for Revealed, which only ever goes
// from false to true.
type Card struct {
	ID       string   `json:"id"`
	Position int      `json:"position"`
	Word     string   `json:"word"`
	Category Category `json:"category"`
	TeamID   string   `json:"teamId,omitempty"`
	Revealed bool     `json:"revealed"`
}

// RoleAssignment associates a player with a role for one round.
type RoleAssignment struct {
	RoundID  string `json:"roundId"`
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
	Role     Role   `json:"role"`
}

// Turn is one team's go within a round.
type Turn struct {
	ID               string        `json:"id"`
	RoundID          string        `json:"roundId"`
	TeamID           string        `json:"teamId"`
	Seq              int           `json:"seq"`
	Phase            TurnPhase     `json:"phase"`
	RemainingGuesses int           `json:"remainingGuesses"`
	Clue             *Clue         `json:"clue,omitempty"`
	Guesses          []Guess       `json:"guesses"`
	EndReason        TurnEndReason `json:"endReason,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
}

// Status reports ACTIVE until the turn has completed.
func (t Turn) Status() TurnStatus {
	if t.Phase == PhaseCompleted {
		return TurnCompleted
	}
	return TurnActive
}

// Clue is attached once per turn by the team's clue-giver.
type Clue struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turnId"`
	GiverID   string    `json:"giverId"`
	Word      string    `json:"word"`
	Target    int       `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

// Guess is one revealed card. Seq orders guesses within a turn.
type Guess struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turnId"`
	PlayerID  string    `json:"playerId"`
	CardID    string    `json:"cardId"`
	Outcome   Outcome   `json:"outcome"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// Actor is the resolved identity of a caller: which game, which player,
// which team and (for the current round) which role. System actors are
// used by the transport layer for timer-driven actions.
type Actor struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
	Role     Role   `json:"role,omitempty"`
	System   bool   `json:"system,omitempty"`
}

// SystemActor returns an actor allowed to end turns on behalf of a game.
func SystemActor(gameID string) Actor {
	return Actor{GameID: gameID, System: true}
}

// Rand is the randomness needed by the card allocator. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Env carries the inputs a transition must not invent itself.
type Env struct {
	Now   time.Time
	NewID func() string
	Rand  Rand
}

// ---------------------------- lookups ---------------------------------

// Team returns the team with the given id.
func (g *Game) Team(id string) (*Team, bool) {
	for i := range g.Teams {
		if g.Teams[i].ID == id {
			return &g.Teams[i], true
		}
	}
	return nil, false
}

// Player returns the player with the given id.
func (g *Game) Player(id string) (*Player, bool) {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i], true
		}
	}
	return nil, false
}

// Round returns the round with the given id.
func (g *Game) Round(id string) (*Round, bool) {
	for i := range g.Rounds {
		if g.Rounds[i].ID == id {
			return &g.Rounds[i], true
		}
	}
	return nil, false
}

// CurrentRound returns the most recently created round, if any.
func (g *Game) CurrentRound() (*Round, bool) {
	if len(g.Rounds) == 0 {
		return nil, false
	}
	return &g.Rounds[len(g.Rounds)-1], true
}

// FindTurn locates a turn and the round that owns it.
func (g *Game) FindTurn(turnID string) (*Round, *Turn, bool) {
	for i := range g.Rounds {
		r := &g.Rounds[i]
		for j := range r.Turns {
			if r.Turns[j].ID == turnID {
				return r, &r.Turns[j], true
			}
		}
	}
	return nil, nil, false
}

// TeamOrder returns team ids in play order.
func (g *Game) TeamOrder() []string {
	out := make([]string, len(g.Teams))
	for _, t := range g.Teams {
		out[t.Order] = t.ID
	}
	return out
}

// NextTeam returns the team that plays after teamID.
func (g *Game) NextTeam(teamID string) string {
	order := g.TeamOrder()
	for i, id := range order {
		if id == teamID {
			return order[(i+1)%len(order)]
		}
	}
	return ""
}

// TeamPlayers returns the players of a team ordered by join sequence.
func (g *Game) TeamPlayers(teamID string) []Player {
	var out []Player
	for _, p := range g.Players {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	return out
}

// Card returns the card with the given id.
func (r *Round) Card(id string) (*Card, bool) {
	for i := range r.Cards {
		if r.Cards[i].ID == id {
			return &r.Cards[i], true
		}
	}
	return nil, false
}

// ActiveTurn returns the round's ACTIVE turn, if any.
func (r *Round) ActiveTurn() (*Turn, bool) {
	for i := range r.Turns {
		if r.Turns[i].Status() == TurnActive {
			return &r.Turns[i], true
		}
	}
	return nil, false
}

// RoleOf returns the role a player holds in this round.
func (r *Round) RoleOf(playerID string) (Role, bool) {
	for _, a := range r.Roles {
		if a.PlayerID == playerID {
			return a.Role, true
		}
	}
	return "", false
}

// ClueGiver returns the clue-giver assigned to a team in this round.
func (r *Round) ClueGiver(teamID string) (string, bool) {
	for _, a := range r.Roles {
		if a.TeamID == teamID && a.Role == RoleClueGiver {
			return a.PlayerID, true
		}
	}
	return "", false
}

// TeamCardCounts returns (revealed, total) TEAM cards bound to teamID.
func (r *Round) TeamCardCounts(teamID string) (revealed, total int) {
	for _, c := range r.Cards {
		if c.Category != CategoryTeam || c.TeamID != teamID {
			continue
		}
		total++
		if c.Revealed {
			revealed++
		}
	}
	return revealed, total
}

// HasWord reports whether any card on the board matches word,
// ignoring case and surrounding whitespace.
func (r *Round) HasWord(word string) bool {
	word = strings.TrimSpace(word)
	for _, c := range r.Cards {
		if strings.EqualFold(c.Word, word) {
			return true
		}
	}
	return false
}
