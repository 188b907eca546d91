package game

import "fmt"

// Defaults for a classic two-team board.
const (
	DefaultTeamCount         = 2
	DefaultRoundSize         = 25
	DefaultTrapCount         = 1
	DefaultRoundsToWin       = 1
	DefaultMinPlayersPerTeam = 2
	DefaultDeckID            = "classic"
	DefaultLanguage          = "en"

	maxTeams     = 8
	maxRoundSize = 100
)

// Settings configure a game at creation time.
type Settings struct {
	TeamCount         int    `json:"teamCount"`
	RoundSize         int    `json:"roundSize"`
	TrapCount         int    `json:"trapCount"`
	RoundsToWin       int    `json:"roundsToWin"`
	RotationWindow    int    `json:"rotationWindow"` // 0 = everybody serves once before anyone repeats
	MinPlayersPerTeam int    `json:"minPlayersPerTeam"`
	DeckID            string `json:"deckId"`
	Language          string `json:"language"`
	AutoOpenTurns     bool   `json:"autoOpenTurns"`
}

// DefaultSettings returns the settings of a standard 5x5 game.
func DefaultSettings() Settings {
	return Settings{
		TeamCount:         DefaultTeamCount,
		RoundSize:         DefaultRoundSize,
		TrapCount:         DefaultTrapCount,
		RoundsToWin:       DefaultRoundsToWin,
		MinPlayersPerTeam: DefaultMinPlayersPerTeam,
		DeckID:            DefaultDeckID,
		Language:          DefaultLanguage,
		AutoOpenTurns:     true,
	}
}

// WithDefaults fills zero values from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.TeamCount == 0 {
		s.TeamCount = d.TeamCount
	}
	if s.RoundSize == 0 {
		s.RoundSize = d.RoundSize
	}
	if s.TrapCount == 0 {
		s.TrapCount = d.TrapCount
	}
	if s.RoundsToWin == 0 {
		s.RoundsToWin = d.RoundsToWin
	}
	if s.MinPlayersPerTeam == 0 {
		s.MinPlayersPerTeam = d.MinPlayersPerTeam
	}
	if s.DeckID == "" {
		s.DeckID = d.DeckID
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	return s
}

// Validate checks the settings and the default board they imply.
func (s Settings) Validate() error {
	switch {
	case s.TeamCount < 2 || s.TeamCount > maxTeams:
		return &ValidationError{Field: "teamCount", Reason: fmt.Sprintf("must be between 2 and %d", maxTeams)}
	case s.RoundSize < 2 || s.RoundSize > maxRoundSize:
		return &ValidationError{Field: "roundSize", Reason: fmt.Sprintf("must be between 2 and %d", maxRoundSize)}
	case s.TrapCount < 0:
		return &ValidationError{Field: "trapCount", Reason: "must not be negative"}
	case s.RoundsToWin < 1:
		return &ValidationError{Field: "roundsToWin", Reason: "must be at least 1"}
	case s.RotationWindow < 0:
		return &ValidationError{Field: "rotationWindow", Reason: "must not be negative"}
	case s.MinPlayersPerTeam < 1:
		return &ValidationError{Field: "minPlayersPerTeam", Reason: "must be at least 1"}
	}
	placeholder := make([]string, s.TeamCount)
	for i := range placeholder {
		placeholder[i] = fmt.Sprintf("team-%d", i)
	}
	_, err := PlanDistribution(s.RoundSize, placeholder, placeholder[0], s.TrapCount)
	return err
}
