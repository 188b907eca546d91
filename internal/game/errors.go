// internal/game/errors.go
//
// Error taxonomy of the rules engine:
//   - state errors:     InvalidLifecycleTransitionError, InvalidTurnStateError
//   - authorization:    UnauthorizedActionError
//   - resource/data:    InsufficientWordsError, NoEligiblePlayersError
//   - input:            ValidationError, InvalidAllocationError, NotFoundError
//   - defects:          InvariantError
//
// Callers inspect them with errors.As. None of them is retried by the engine.

package game

import (
	"fmt"
	"sort"
	"strings"
)

// InvalidLifecycleTransitionError is returned when a game or round
// transition is attempted without its preconditions.
type InvalidLifecycleTransitionError struct {
	Entity string // "game" or "round"
	ID     string
	From   string
	To     string
	Reason string
}

func (e *InvalidLifecycleTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot go from %s to %s: %s", e.Entity, e.ID, e.From, e.To, e.Reason)
}

// InvalidTurnStateError is returned when a turn operation does not fit the
// current turn or round state.
type InvalidTurnStateError struct {
	TurnID string
	Phase  TurnPhase
	Reason string
}

func (e *InvalidTurnStateError) Error() string {
	if e.TurnID == "" {
		return "invalid turn state: " + e.Reason
	}
	return fmt.Sprintf("turn %s (%s): %s", e.TurnID, e.Phase, e.Reason)
}

// UnauthorizedActionError is returned when the actor lacks the role the
// action requires.
type UnauthorizedActionError struct {
	PlayerID string
	Action   string
	Reason   string
}

func (e *UnauthorizedActionError) Error() string {
	return fmt.Sprintf("player %s may not %s: %s", e.PlayerID, e.Action, e.Reason)
}

// InsufficientWordsError is returned when the word source cannot supply
// enough unique words for a board.
type InsufficientWordsError struct {
	DeckID    string
	Language  string
	Requested int
	Available int
}

func (e *InsufficientWordsError) Error() string {
	return fmt.Sprintf("deck %q (%s) has %d unique words, %d needed", e.DeckID, e.Language, e.Available, e.Requested)
}

// NoEligiblePlayersError is returned when a team has no ACTIVE player to
// take a role.
type NoEligiblePlayersError struct {
	TeamID string
}

func (e *NoEligiblePlayersError) Error() string {
	return fmt.Sprintf("team %s has no active players", e.TeamID)
}

// InvalidAllocationError is returned for card distributions that cannot
// be built.
type InvalidAllocationError struct {
	Reason string
}

func (e *InvalidAllocationError) Error() string {
	return "invalid allocation: " + e.Reason
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvariantError marks a programming defect: a state the rules can never
// legitimately produce. It must abort the enclosing operation.
type InvariantError struct {
	Op      string
	Detail  string
	Context map[string]string
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	b.WriteString("invariant violated in ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Detail)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Context[k])
		}
	}
	return b.String()
}

func roundTransitionErr(r *Round, to RoundStatus, reason string) error {
	return &InvalidLifecycleTransitionError{Entity: "round", ID: r.ID, From: string(r.Status), To: string(to), Reason: reason}
}

func gameTransitionErr(g *Game, to GameStatus, reason string) error {
	return &InvalidLifecycleTransitionError{Entity: "game", ID: g.ID, From: string(g.Status), To: string(to), Reason: reason}
}

func turnStateErr(t *Turn, reason string) error {
	if t == nil {
		return &InvalidTurnStateError{Reason: reason}
	}
	return &InvalidTurnStateError{TurnID: t.ID, Phase: t.Phase, Reason: reason}
}
