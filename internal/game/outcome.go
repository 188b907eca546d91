package game

// Effect is what an outcome does to the turn and round.
type Effect struct {
	Scores    bool `json:"scores"`    // guessing team gains a point
	EndsTurn  bool `json:"endsTurn"`  // turn completes regardless of the remaining counter
	EndsRound bool `json:"endsRound"` // round completes in favour of another team
}

// Evaluate maps a guessed card to an outcome relative to the team whose
// turn it is. It has no side effects. Inputs the rules can never produce
// (a TEAM card with no owner, an owned NEUTRAL/TRAP card, an unknown
// category) return an *InvariantError.
func Evaluate(category Category, boundTeam, turnTeam string) (Outcome, error) {
	switch category {
	case CategoryTeam:
		if boundTeam == "" {
			return "", &InvariantError{Op: "evaluate", Detail: "team card without a team", Context: map[string]string{"turnTeam": turnTeam}}
		}
		if boundTeam == turnTeam {
			return OutcomeCorrectTeam, nil
		}
		return OutcomeOtherTeam, nil
	case CategoryNeutral, CategoryTrap:
		if boundTeam != "" {
			return "", &InvariantError{Op: "evaluate", Detail: string(category) + " card bound to a team", Context: map[string]string{"boundTeam": boundTeam}}
		}
		if category == CategoryTrap {
			return OutcomeTrap, nil
		}
		return OutcomeNeutral, nil
	default:
		return "", &InvariantError{Op: "evaluate", Detail: "unknown card category", Context: map[string]string{"category": string(category)}}
	}
}

// EffectOf returns the lifecycle effect of an outcome.
func EffectOf(o Outcome) Effect {
	switch o {
	case OutcomeCorrectTeam:
		return Effect{Scores: true}
	case OutcomeOtherTeam, OutcomeNeutral:
		return Effect{EndsTurn: true}
	case OutcomeTrap:
		return Effect{EndsTurn: true, EndsRound: true}
	}
	return Effect{EndsTurn: true}
}
