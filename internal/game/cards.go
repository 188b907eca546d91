// internal/game/cards.go
//
// Card Allocator.
// Responsibilities:
//   - Plan the per-category card counts for a board (PlanDistribution).
//   - Bind fetched words to category slots uniformly at random (Deal).
//   - Allocate and redeal the cards of a round that is still in SETUP.
//
// Ratio rule:
//   non-team cards = round(8/25 * N), half rounding up
//   team cards     = N - non-team, split evenly in play order starting
//                    with the starting team (it gets any odd card first)
//   trap cards     = K, taken out of the non-team share
//   neutral cards  = non-team - K

package game

import (
	"fmt"
	"strings"
)

const (
	nonTeamNumerator   = 8
	nonTeamDenominator = 25
)

// TeamShare is the number of TEAM cards bound to one team.
type TeamShare struct {
	TeamID string `json:"teamId"`
	Cards  int    `json:"cards"`
}

// Distribution is the category plan of a board. Teams is in play order.
type Distribution struct {
	Size    int         `json:"size"`
	Teams   []TeamShare `json:"teams"`
	Neutral int         `json:"neutral"`
	Trap    int         `json:"trap"`
}

// Total returns the number of cards the distribution describes.
func (d Distribution) Total() int {
	n := d.Neutral + d.Trap
	for _, t := range d.Teams {
		n += t.Cards
	}
	return n
}

// Share returns the TEAM-card count planned for teamID.
func (d Distribution) Share(teamID string) int {
	for _, t := range d.Teams {
		if t.TeamID == teamID {
			return t.Cards
		}
	}
	return 0
}

// nonTeamShare returns round(8N/25) using integer arithmetic.
func nonTeamShare(size int) int {
	return (2*nonTeamNumerator*size + nonTeamDenominator) / (2 * nonTeamDenominator)
}

// PlanDistribution computes the category counts for a board of size cards
// shared by the teams in teamOrder. It is deterministic.
func PlanDistribution(size int, teamOrder []string, startingTeamID string, trapCount int) (Distribution, error) {
	teams := len(teamOrder)
	if teams < 2 {
		return Distribution{}, &InvalidAllocationError{Reason: "at least two teams are required"}
	}
	if size <= 0 {
		return Distribution{}, &InvalidAllocationError{Reason: "round size must be positive"}
	}
	if trapCount < 0 {
		return Distribution{}, &InvalidAllocationError{Reason: "trap count must not be negative"}
	}
	if trapCount >= size {
		return Distribution{}, &InvalidAllocationError{Reason: fmt.Sprintf("trap count %d must be smaller than round size %d", trapCount, size)}
	}

	nonTeam := nonTeamShare(size)
	if trapCount > nonTeam {
		return Distribution{}, &InvalidAllocationError{Reason: fmt.Sprintf("trap count %d exceeds the %d non-team cards of a %d-card board", trapCount, nonTeam, size)}
	}
	teamCards := size - nonTeam
	if teamCards < teams {
		return Distribution{}, &InvalidAllocationError{Reason: fmt.Sprintf("%d team cards cannot be shared by %d teams", teamCards, teams)}
	}

	start := -1
	for i, id := range teamOrder {
		if id == startingTeamID {
			start = i
			break
		}
	}
	if start < 0 {
		return Distribution{}, &InvalidAllocationError{Reason: fmt.Sprintf("starting team %q is not playing", startingTeamID)}
	}

	base, extra := teamCards/teams, teamCards%teams
	shares := make([]TeamShare, teams)
	for i, id := range teamOrder {
		shares[i] = TeamShare{TeamID: id, Cards: base}
	}
	for i := 0; i < extra; i++ {
		shares[(start+i)%teams].Cards++
	}

	return Distribution{
		Size:    size,
		Teams:   shares,
		Neutral: nonTeam - trapCount,
		Trap:    trapCount,
	}, nil
}

type slot struct {
	category Category
	teamID   string
}

// Deal binds words to the slots of d. Each word, in order, takes a slot
// drawn uniformly from the ones still free. words must hold at least
// d.Total() entries; extra words are ignored.
func Deal(env Env, d Distribution, words []string) []Card {
	slots := make([]slot, 0, d.Total())
	for _, t := range d.Teams {
		for i := 0; i < t.Cards; i++ {
			slots = append(slots, slot{category: CategoryTeam, teamID: t.TeamID})
		}
	}
	for i := 0; i < d.Neutral; i++ {
		slots = append(slots, slot{category: CategoryNeutral})
	}
	for i := 0; i < d.Trap; i++ {
		slots = append(slots, slot{category: CategoryTrap})
	}

	cards := make([]Card, 0, len(slots))
	for pos := 0; len(slots) > 0; pos++ {
		k := env.Rand.IntN(len(slots))
		s := slots[k]
		slots[k] = slots[len(slots)-1]
		slots = slots[:len(slots)-1]
		cards = append(cards, Card{
			ID:       env.NewID(),
			Position: pos,
			Word:     words[pos],
			Category: s.category,
			TeamID:   s.teamID,
		})
	}
	return cards
}

// uniqueWords drops blanks and case-insensitive duplicates, keeping order.
func uniqueWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		k := strings.ToLower(w)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, w)
	}
	return out
}

// AllocateCards deals a fresh board for a round in SETUP, replacing any
// cards it already had.
func AllocateCards(g *Game, env Env, roundID string, size, teamCount, trapCount int, words []string) (*Game, []Card, error) {
	next := g.Clone()
	r, ok := next.Round(roundID)
	if !ok {
		return nil, nil, &NotFoundError{Kind: "round", ID: roundID}
	}
	if r.Status != RoundSetup {
		return nil, nil, roundTransitionErr(r, RoundSetup, "cards can only be dealt while the round is in setup")
	}
	if teamCount != len(next.Teams) {
		return nil, nil, &InvalidAllocationError{Reason: fmt.Sprintf("game has %d teams, %d requested", len(next.Teams), teamCount)}
	}
	d, err := PlanDistribution(size, next.TeamOrder(), r.StartingTeamID, trapCount)
	if err != nil {
		return nil, nil, err
	}
	if err := deal(next, env, r, d, words); err != nil {
		return nil, nil, err
	}
	return next, cloneCards(r.Cards), nil
}

// RedealCards replaces the board of a round in SETUP using the
// distribution of its previous allocation.
func RedealCards(g *Game, env Env, roundID string, words []string) (*Game, []Card, error) {
	next := g.Clone()
	r, ok := next.Round(roundID)
	if !ok {
		return nil, nil, &NotFoundError{Kind: "round", ID: roundID}
	}
	if r.Status != RoundSetup {
		return nil, nil, roundTransitionErr(r, RoundSetup, "cards can only be redealt while the round is in setup")
	}
	if r.Distribution == nil {
		return nil, nil, roundTransitionErr(r, RoundSetup, "no cards have been allocated yet")
	}
	if err := deal(next, env, r, *r.Distribution, words); err != nil {
		return nil, nil, err
	}
	return next, cloneCards(r.Cards), nil
}

func deal(g *Game, env Env, r *Round, d Distribution, words []string) error {
	uniq := uniqueWords(words)
	if len(uniq) < d.Total() {
		return &InsufficientWordsError{
			DeckID:    g.Settings.DeckID,
			Language:  g.Settings.Language,
			Requested: d.Total(),
			Available: len(uniq),
		}
	}
	dist := d
	dist.Teams = append([]TeamShare(nil), d.Teams...)
	r.Distribution = &dist
	r.Cards = Deal(env, dist, uniq)
	return nil
}
