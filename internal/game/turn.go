// internal/game/turn.go
//
// Turn Lifecycle: OPEN (no clue) -> CLUED (awaiting guesses) -> COMPLETED.
//
// Rules enforced here:
//   - one ACTIVE turn per round; teams take turns in play order
//   - only the team's clue-giver gives the clue, only its guessers guess
//   - a clue grants target+1 guesses; every accepted guess uses one
//   - any guess other than CORRECT_TEAM ends the turn, TRAP ends the round
//   - the round is won as soon as a team's last card is revealed

package game

import (
	"fmt"
	"strings"
)

// TurnChange reports a completed or updated turn and, when turns open
// automatically, the turn that replaced it.
type TurnChange struct {
	Turn     Turn  `json:"turn"`
	NextTurn *Turn `json:"nextTurn,omitempty"`
}

// GuessResult is everything a guess changed.
type GuessResult struct {
	Guess          Guess   `json:"guess"`
	Outcome        Outcome `json:"outcome"`
	Effect         Effect  `json:"effect"`
	Card           Card    `json:"card"`
	Turn           Turn    `json:"turn"`
	NextTurn       *Turn   `json:"nextTurn,omitempty"`
	TurnCompleted  bool    `json:"turnCompleted"`
	RoundCompleted bool    `json:"roundCompleted"`
	GameCompleted  bool    `json:"gameCompleted"`
	WinnerTeamID   string  `json:"winnerTeamId,omitempty"`
}

// OpenTurn opens a turn for teamID, which must be the team due to play.
func OpenTurn(g *Game, env Env, roundID, teamID string) (*Game, Turn, error) {
	next := g.Clone()
	r, ok := next.Round(roundID)
	if !ok {
		return nil, Turn{}, &NotFoundError{Kind: "round", ID: roundID}
	}
	t, err := openTurn(next, env, r, teamID)
	if err != nil {
		return nil, Turn{}, err
	}
	return next, t.clone(), nil
}

func openTurn(g *Game, env Env, r *Round, teamID string) (*Turn, error) {
	if r.Status != RoundInProgress {
		return nil, turnStateErr(nil, fmt.Sprintf("round %s is %s", r.ID, r.Status))
	}
	if active, ok := r.ActiveTurn(); ok {
		return nil, turnStateErr(active, "another turn is still active")
	}
	if due := dueTeam(g, r); teamID != due {
		return nil, turnStateErr(nil, fmt.Sprintf("team %s is due to play, not %s", due, teamID))
	}
	r.Turns = append(r.Turns, Turn{
		ID:        env.NewID(),
		RoundID:   r.ID,
		TeamID:    teamID,
		Seq:       len(r.Turns) + 1,
		Phase:     PhaseOpen,
		CreatedAt: env.Now,
	})
	return &r.Turns[len(r.Turns)-1], nil
}

// dueTeam is the starting team for the first turn, then the team after
// the previous turn's team.
func dueTeam(g *Game, r *Round) string {
	if len(r.Turns) == 0 {
		return r.StartingTeamID
	}
	return g.NextTeam(r.Turns[len(r.Turns)-1].TeamID)
}

// GiveClue attaches the clue to an OPEN turn.
func GiveClue(g *Game, env Env, turnID string, actor Actor, word string, target int) (*Game, Clue, error) {
	next := g.Clone()
	r, t, err := lookupTurn(next, turnID, actor)
	if err != nil {
		return nil, Clue{}, err
	}
	if r.Status != RoundInProgress || t.Phase != PhaseOpen {
		return nil, Clue{}, turnStateErr(t, "a clue can only be given on an open turn")
	}
	if err := requireRole(next, r, t, actor, "give a clue", RoleClueGiver); err != nil {
		return nil, Clue{}, err
	}

	word = strings.TrimSpace(word)
	switch {
	case word == "":
		return nil, Clue{}, &ValidationError{Field: "word", Reason: "must not be empty"}
	case len(strings.Fields(word)) != 1:
		return nil, Clue{}, &ValidationError{Field: "word", Reason: "must be a single word"}
	case r.HasWord(word):
		return nil, Clue{}, &ValidationError{Field: "word", Reason: "must not be a word on the board"}
	}
	if limit := len(r.Cards) - 1; target < 0 || target > limit {
		return nil, Clue{}, &ValidationError{Field: "target", Reason: fmt.Sprintf("must be between 0 and %d", limit)}
	}

	c := Clue{
		ID:        env.NewID(),
		TurnID:    t.ID,
		GiverID:   actor.PlayerID,
		Word:      word,
		Target:    target,
		CreatedAt: env.Now,
	}
	t.Clue = &c
	t.RemainingGuesses = target + 1
	t.Phase = PhaseClued
	return next, c, nil
}

// SubmitGuess reveals a card for the turn's team and applies the outcome.
func SubmitGuess(g *Game, env Env, turnID string, actor Actor, cardID string) (*Game, GuessResult, error) {
	next := g.Clone()
	r, t, err := lookupTurn(next, turnID, actor)
	if err != nil {
		return nil, GuessResult{}, err
	}
	if r.Status != RoundInProgress || t.Phase != PhaseClued {
		return nil, GuessResult{}, turnStateErr(t, "guesses are only accepted after a clue on an active turn")
	}
	if err := requireRole(next, r, t, actor, "guess", RoleGuesser); err != nil {
		return nil, GuessResult{}, err
	}
	if t.RemainingGuesses <= 0 {
		return nil, GuessResult{}, turnStateErr(t, "no guesses left")
	}
	card, ok := r.Card(cardID)
	if !ok {
		return nil, GuessResult{}, turnStateErr(t, fmt.Sprintf("card %s is not on this board", cardID))
	}
	if card.Revealed {
		return nil, GuessResult{}, turnStateErr(t, fmt.Sprintf("card %s is already revealed", cardID))
	}
	if card.Category == CategoryTeam {
		if _, ok := next.Team(card.TeamID); !ok {
			return nil, GuessResult{}, &InvariantError{Op: "guess", Detail: "card bound to a team outside the game",
				Context: map[string]string{"card": card.ID, "team": card.TeamID, "round": r.ID}}
		}
	}

	outcome, err := Evaluate(card.Category, card.TeamID, t.TeamID)
	if err != nil {
		return nil, GuessResult{}, err
	}
	effect := EffectOf(outcome)

	card.Revealed = true
	guess := Guess{
		ID:        env.NewID(),
		TurnID:    t.ID,
		PlayerID:  actor.PlayerID,
		CardID:    card.ID,
		Outcome:   outcome,
		Seq:       len(t.Guesses) + 1,
		CreatedAt: env.Now,
	}
	t.Guesses = append(t.Guesses, guess)
	t.RemainingGuesses--
	if effect.Scores {
		team, _ := next.Team(t.TeamID)
		team.Score++
	}

	if card.Category == CategoryTeam {
		revealed, total := r.TeamCardCounts(card.TeamID)
		if revealed > total {
			return nil, GuessResult{}, &InvariantError{Op: "guess", Detail: "more cards revealed than dealt",
				Context: map[string]string{"team": card.TeamID, "round": r.ID}}
		}
	}

	switch {
	case effect.EndsRound:
		if err := completeRound(next, env, r, next.NextTeam(t.TeamID), RoundEndTrap, EndedTrap); err != nil {
			return nil, GuessResult{}, err
		}
	case card.Category == CategoryTeam && teamFinished(r, card.TeamID):
		if err := completeRound(next, env, r, card.TeamID, RoundEndAllFound, EndedRoundWon); err != nil {
			return nil, GuessResult{}, err
		}
	case effect.EndsTurn:
		completeTurn(t, env, EndedWrongGuess)
	case t.RemainingGuesses == 0:
		completeTurn(t, env, EndedNoGuessesLeft)
	}

	res := GuessResult{
		Guess:          guess,
		Outcome:        outcome,
		Effect:         effect,
		Card:           *card,
		Turn:           t.clone(),
		TurnCompleted:  t.Phase == PhaseCompleted,
		RoundCompleted: r.Status == RoundCompleted,
		GameCompleted:  next.Status == GameCompleted,
		WinnerTeamID:   r.WinnerTeamID,
	}
	if res.TurnCompleted && !res.RoundCompleted {
		nt, err := advance(next, env, r, t)
		if err != nil {
			return nil, GuessResult{}, err
		}
		res.NextTurn = nt
	}
	return next, res, nil
}

// EndTurn completes a CLUED turn on request of its team (or the system,
// e.g. a turn timer in the transport layer). The system may also skip an
// OPEN turn whose clue never came.
func EndTurn(g *Game, env Env, turnID string, actor Actor) (*Game, TurnChange, error) {
	next := g.Clone()
	r, t, err := lookupTurn(next, turnID, actor)
	if err != nil {
		return nil, TurnChange{}, err
	}
	skip := actor.System && t.Phase == PhaseOpen
	if r.Status != RoundInProgress || (t.Phase != PhaseClued && !skip) {
		return nil, TurnChange{}, turnStateErr(t, "only a clued, active turn can be ended")
	}
	if !actor.System {
		if err := requireRole(next, r, t, actor, "end the turn", RoleClueGiver, RoleGuesser); err != nil {
			return nil, TurnChange{}, err
		}
	}

	reason := EndedByPlayer
	if skip {
		reason = EndedSkipped
	}
	completeTurn(t, env, reason)
	done := t.clone()
	nt, err := advance(next, env, r, &done)
	if err != nil {
		return nil, TurnChange{}, err
	}
	return next, TurnChange{Turn: done, NextTurn: nt}, nil
}

// advance opens the next team's turn when the game is set to do so.
func advance(g *Game, env Env, r *Round, done *Turn) (*Turn, error) {
	if !g.Settings.AutoOpenTurns {
		return nil, nil
	}
	nt, err := openTurn(g, env, r, g.NextTeam(done.TeamID))
	if err != nil {
		return nil, err
	}
	c := nt.clone()
	return &c, nil
}

func completeTurn(t *Turn, env Env, reason TurnEndReason) {
	now := env.Now
	t.Phase = PhaseCompleted
	t.EndReason = reason
	t.CompletedAt = &now
}

func teamFinished(r *Round, teamID string) bool {
	revealed, total := r.TeamCardCounts(teamID)
	return total > 0 && revealed == total
}

func lookupTurn(g *Game, turnID string, actor Actor) (*Round, *Turn, error) {
	if actor.GameID != g.ID {
		return nil, nil, &UnauthorizedActionError{PlayerID: actor.PlayerID, Action: "act", Reason: "not a member of this game"}
	}
	r, t, ok := g.FindTurn(turnID)
	if !ok {
		return nil, nil, &NotFoundError{Kind: "turn", ID: turnID}
	}
	return r, t, nil
}

// requireRole checks the actor against the game's own records: the
// player must be ACTIVE, on the turn's team and hold one of roles in the
// round.
func requireRole(g *Game, r *Round, t *Turn, actor Actor, action string, roles ...Role) error {
	p, ok := g.Player(actor.PlayerID)
	if !ok {
		return &UnauthorizedActionError{PlayerID: actor.PlayerID, Action: action, Reason: "unknown player"}
	}
	if p.Status != PlayerActive {
		return &UnauthorizedActionError{PlayerID: p.ID, Action: action, Reason: "player is inactive"}
	}
	if p.TeamID != t.TeamID {
		return &UnauthorizedActionError{PlayerID: p.ID, Action: action, Reason: "it is another team's turn"}
	}
	held, ok := r.RoleOf(p.ID)
	if !ok {
		return &UnauthorizedActionError{PlayerID: p.ID, Action: action, Reason: "no role in this round"}
	}
	for _, want := range roles {
		if held == want {
			return nil
		}
	}
	return &UnauthorizedActionError{PlayerID: p.ID, Action: action, Reason: fmt.Sprintf("role %s is not allowed", held)}
}
