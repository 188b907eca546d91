// internal/game/lifecycle.go
//
// Round/Game Lifecycle.
//   Game:  LOBBY -> IN_PROGRESS -> COMPLETED
//   Round: SETUP -> IN_PROGRESS -> COMPLETED
//
// Every transition returns a new snapshot. On error the input is left as
// it was and nothing should be persisted.

package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxNameLen = 32

var defaultTeamNames = []string{"Red", "Blue", "Green", "Yellow", "Purple", "Orange", "Teal", "Grey"}

// NewGame creates a game in LOBBY with its teams. Missing team names fall
// back to colours.
func NewGame(env Env, s Settings, teamNames []string) (*Game, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(teamNames) == 0 {
		teamNames = defaultTeamNames[:s.TeamCount]
	}
	if len(teamNames) != s.TeamCount {
		return nil, &ValidationError{Field: "teams", Reason: fmt.Sprintf("%d names given for %d teams", len(teamNames), s.TeamCount)}
	}

	g := &Game{
		ID:        env.NewID(),
		Status:    GameLobby,
		Settings:  s,
		CreatedAt: env.Now,
		UpdatedAt: env.Now,
	}
	seen := make(map[string]struct{}, len(teamNames))
	for i, name := range teamNames {
		name, err := cleanName("teams", name)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, &ValidationError{Field: "teams", Reason: fmt.Sprintf("duplicate team name %q", name)}
		}
		seen[key] = struct{}{}
		g.Teams = append(g.Teams, Team{ID: env.NewID(), Name: name, Order: i})
	}
	return g, nil
}

// AddPlayer adds a player to a team. An empty teamID joins the smallest
// team. The first player becomes the host. Players joining a game in
// progress hold no role until the next role assignment.
func AddPlayer(g *Game, env Env, name, teamID string) (*Game, Player, error) {
	if g.Status == GameCompleted {
		return nil, Player{}, gameTransitionErr(g, g.Status, "game is over")
	}
	name, err := cleanName("name", name)
	if err != nil {
		return nil, Player{}, err
	}
	for _, p := range g.Players {
		if strings.EqualFold(p.Name, name) {
			return nil, Player{}, &ValidationError{Field: "name", Reason: fmt.Sprintf("%q is already taken", name)}
		}
	}

	next := g.Clone()
	if teamID == "" {
		teamID = smallestTeam(next)
	} else if _, ok := next.Team(teamID); !ok {
		return nil, Player{}, &NotFoundError{Kind: "team", ID: teamID}
	}

	seq := 1
	for _, p := range next.Players {
		if p.Seq >= seq {
			seq = p.Seq + 1
		}
	}
	p := Player{
		ID:       env.NewID(),
		TeamID:   teamID,
		Name:     name,
		Status:   PlayerActive,
		Seq:      seq,
		JoinedAt: env.Now,
	}
	next.Players = append(next.Players, p)
	if next.HostID == "" {
		next.HostID = p.ID
	}
	return next, p, nil
}

// SetPlayerStatus flips a player's connectivity flag. It affects role
// eligibility from the next assignment on.
func SetPlayerStatus(g *Game, playerID string, status PlayerStatus) (*Game, Player, error) {
	if !status.Valid() {
		return nil, Player{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	next := g.Clone()
	p, ok := next.Player(playerID)
	if !ok {
		return nil, Player{}, &NotFoundError{Kind: "player", ID: playerID}
	}
	p.Status = status
	return next, *p, nil
}

// StartGame moves a game out of the lobby once every team has enough
// active players.
func StartGame(g *Game) (*Game, error) {
	if g.Status != GameLobby {
		return nil, gameTransitionErr(g, GameInProgress, "game has already started")
	}
	if len(g.Teams) != g.Settings.TeamCount {
		return nil, gameTransitionErr(g, GameInProgress, fmt.Sprintf("%d of %d teams present", len(g.Teams), g.Settings.TeamCount))
	}
	for _, t := range g.Teams {
		active := 0
		for _, p := range g.TeamPlayers(t.ID) {
			if p.Status == PlayerActive {
				active++
			}
		}
		if active < g.Settings.MinPlayersPerTeam {
			return nil, gameTransitionErr(g, GameInProgress,
				fmt.Sprintf("team %s has %d active players, %d needed", t.Name, active, g.Settings.MinPlayersPerTeam))
		}
	}
	next := g.Clone()
	next.Status = GameInProgress
	return next, nil
}

// CreateRound opens the next round in SETUP. The previous round must be
// completed. Starting teams rotate through play order.
func CreateRound(g *Game, env Env) (*Game, Round, error) {
	if g.Status != GameInProgress {
		return nil, Round{}, gameTransitionErr(g, g.Status, "rounds can only be created while the game is in progress")
	}
	if prev, ok := g.CurrentRound(); ok && prev.Status != RoundCompleted {
		return nil, Round{}, roundTransitionErr(prev, RoundCompleted, "previous round is still being played")
	}

	next := g.Clone()
	seq := len(next.Rounds) + 1
	order := next.TeamOrder()
	r := Round{
		ID:             env.NewID(),
		Seq:            seq,
		Status:         RoundSetup,
		StartingTeamID: order[(seq-1)%len(order)],
		CreatedAt:      env.Now,
	}
	next.Rounds = append(next.Rounds, r)
	return next, r.clone(), nil
}

// StartRound moves a round from SETUP to IN_PROGRESS and opens the first
// turn for the starting team.
func StartRound(g *Game, env Env, roundID string) (*Game, Round, error) {
	next := g.Clone()
	r, ok := next.Round(roundID)
	if !ok {
		return nil, Round{}, &NotFoundError{Kind: "round", ID: roundID}
	}
	if r.Status != RoundSetup {
		return nil, Round{}, roundTransitionErr(r, RoundInProgress, "round is not in setup")
	}
	if next.Status != GameInProgress {
		return nil, Round{}, roundTransitionErr(r, RoundInProgress, "game is not in progress")
	}
	if r.Distribution == nil || len(r.Cards) != r.Distribution.Size {
		return nil, Round{}, roundTransitionErr(r, RoundInProgress, "cards have not been allocated")
	}
	for _, teamID := range next.TeamOrder() {
		if _, ok := r.ClueGiver(teamID); !ok {
			return nil, Round{}, roundTransitionErr(r, RoundInProgress, "roles have not been assigned")
		}
	}

	now := env.Now
	r.Status = RoundInProgress
	r.StartedAt = &now
	if _, err := openTurn(next, env, r, r.StartingTeamID); err != nil {
		return nil, Round{}, err
	}
	return next, r.clone(), nil
}

// completeRound closes a round in favour of winnerID, completes its
// active turn and, when the winner has taken enough rounds, the game.
func completeRound(g *Game, env Env, r *Round, winnerID string, reason RoundEndReason, turnReason TurnEndReason) error {
	winner, ok := g.Team(winnerID)
	if !ok {
		return &InvariantError{Op: "complete round", Detail: "winner is not a team of this game", Context: map[string]string{"round": r.ID, "winner": winnerID}}
	}
	if t, ok := r.ActiveTurn(); ok {
		completeTurn(t, env, turnReason)
	}
	now := env.Now
	r.Status = RoundCompleted
	r.WinnerTeamID = winnerID
	r.EndReason = reason
	r.CompletedAt = &now

	winner.RoundsWon++
	if winner.RoundsWon >= g.Settings.RoundsToWin {
		g.Status = GameCompleted
		g.WinnerTeamID = winnerID
	}
	return nil
}

func smallestTeam(g *Game) string {
	best, bestN := "", -1
	for _, id := range g.TeamOrder() {
		n := len(g.TeamPlayers(id))
		if bestN < 0 || n < bestN {
			best, bestN = id, n
		}
	}
	return best
}

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxNameLen)}
	}
	return name, nil
}
