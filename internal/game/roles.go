package game

import "sort"

// AssignRoles picks one clue-giver per team for a round in SETUP. Other
// ACTIVE teammates become guessers and INACTIVE players observers. Any
// previous assignment for the same round is replaced.
//
// Rotation: with a window of 0 the teammate who gave clues least recently
// (never first) is chosen, so nobody repeats before everyone has served.
// With a window of W, teammates who gave clues in the previous W rounds
// are skipped and the least recent of the rest is chosen; if that leaves
// nobody, everyone is considered again. Ties go to the lowest join
// sequence.
func AssignRoles(g *Game, roundID string) (*Game, []RoleAssignment, error) {
	next := g.Clone()
	r, ok := next.Round(roundID)
	if !ok {
		return nil, nil, &NotFoundError{Kind: "round", ID: roundID}
	}
	if r.Status != RoundSetup {
		return nil, nil, roundTransitionErr(r, RoundSetup, "roles can only be assigned while the round is in setup")
	}

	history := clueGiverHistory(next, r.Seq)
	assignments := make([]RoleAssignment, 0, len(next.Players))
	for _, teamID := range next.TeamOrder() {
		members := next.TeamPlayers(teamID)
		sort.SliceStable(members, func(i, j int) bool { return members[i].Seq < members[j].Seq })

		var eligible []Player
		for _, p := range members {
			if p.Status == PlayerActive {
				eligible = append(eligible, p)
			}
		}
		if len(eligible) == 0 {
			return nil, nil, &NoEligiblePlayersError{TeamID: teamID}
		}

		giver := pickClueGiver(eligible, history[teamID], r.Seq, next.Settings.RotationWindow)
		for _, p := range members {
			role := RoleGuesser
			switch {
			case p.ID == giver:
				role = RoleClueGiver
			case p.Status != PlayerActive:
				role = RoleObserver
			}
			assignments = append(assignments, RoleAssignment{RoundID: r.ID, PlayerID: p.ID, TeamID: teamID, Role: role})
		}
	}

	r.Roles = assignments
	return next, append([]RoleAssignment(nil), assignments...), nil
}

// clueGiverHistory returns, per team, the round sequence in which each
// player last gave clues. Only rounds before seq count.
func clueGiverHistory(g *Game, seq int) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, r := range g.Rounds {
		if r.Seq >= seq {
			continue
		}
		for _, a := range r.Roles {
			if a.Role != RoleClueGiver {
				continue
			}
			if out[a.TeamID] == nil {
				out[a.TeamID] = make(map[string]int)
			}
			if r.Seq > out[a.TeamID][a.PlayerID] {
				out[a.TeamID][a.PlayerID] = r.Seq
			}
		}
	}
	return out
}

// pickClueGiver chooses among eligible players (sorted by Seq).
// lastServed maps player id to the last round sequence they gave clues.
func pickClueGiver(eligible []Player, lastServed map[string]int, seq, window int) string {
	candidates := eligible
	if window > 0 {
		var rested []Player
		for _, p := range eligible {
			if last, served := lastServed[p.ID]; !served || seq-last > window {
				rested = append(rested, p)
			}
		}
		if len(rested) > 0 {
			candidates = rested
		}
	}

	best := candidates[0].ID
	bestLast := lastServed[best]
	for _, p := range candidates[1:] {
		if last := lastServed[p.ID]; last < bestLast {
			best, bestLast = p.ID, last
		}
	}
	return best
}
