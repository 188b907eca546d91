package game

import "time"

// Clone returns a deep copy of the aggregate. Transitions run on clones so
// that a failed operation leaves the caller's snapshot untouched.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Teams = append([]Team(nil), g.Teams...)
	out.Players = append([]Player(nil), g.Players...)
	if g.Rounds != nil {
		out.Rounds = make([]Round, len(g.Rounds))
		for i := range g.Rounds {
			out.Rounds[i] = g.Rounds[i].clone()
		}
	}
	return &out
}

func (r Round) clone() Round {
	out := r
	if r.Distribution != nil {
		d := *r.Distribution
		d.Teams = append([]TeamShare(nil), r.Distribution.Teams...)
		out.Distribution = &d
	}
	out.Cards = cloneCards(r.Cards)
	out.Roles = append([]RoleAssignment(nil), r.Roles...)
	if r.Turns != nil {
		out.Turns = make([]Turn, len(r.Turns))
		for i := range r.Turns {
			out.Turns[i] = r.Turns[i].clone()
		}
	}
	out.StartedAt = cloneTime(r.StartedAt)
	out.CompletedAt = cloneTime(r.CompletedAt)
	return out
}

func (t Turn) clone() Turn {
	out := t
	if t.Clue != nil {
		c := *t.Clue
		out.Clue = &c
	}
	out.Guesses = append([]Guess(nil), t.Guesses...)
	out.CompletedAt = cloneTime(t.CompletedAt)
	return out
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	return append([]Card(nil), cards...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
