package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func testEnv() Env {
	n := 0
	return Env{
		Now: testNow,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
		Rand: rand.New(rand.NewPCG(7, 11)),
	}
}

func wordList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("word%02d", i)
	}
	return out
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func snapshot(t *testing.T, g *Game) string {
	t.Helper()
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// fixture is a two-team game (alice+bob on Red, carol+dave on Blue) with
// round 1 started. alice and carol give clues.
type fixture struct {
	g     *Game
	env   Env
	round string

	red, blue               string
	alice, bob, carol, dave string
}

func newFixture(t *testing.T, size int, tweak func(*Settings)) *fixture {
	t.Helper()
	env := testEnv()
	s := DefaultSettings()
	s.RoundSize = size
	if tweak != nil {
		tweak(&s)
	}
	g, err := NewGame(env, s, []string{"Red", "Blue"})
	mustOK(t, err)
	f := &fixture{env: env, red: g.Teams[0].ID, blue: g.Teams[1].ID}

	join := func(name, team string) string {
		var p Player
		g, p, err = AddPlayer(g, env, name, team)
		mustOK(t, err)
		return p.ID
	}
	f.alice = join("alice", f.red)
	f.bob = join("bob", f.red)
	f.carol = join("carol", f.blue)
	f.dave = join("dave", f.blue)

	g, err = StartGame(g)
	mustOK(t, err)
	var r Round
	g, r, err = CreateRound(g, env)
	mustOK(t, err)
	g, _, err = AllocateCards(g, env, r.ID, size, 2, s.TrapCount, wordList(size))
	mustOK(t, err)
	g, _, err = AssignRoles(g, r.ID)
	mustOK(t, err)
	g, _, err = StartRound(g, env, r.ID)
	mustOK(t, err)

	f.g = g
	f.round = r.ID
	return f
}

func (f *fixture) actor(playerID string) Actor {
	p, _ := f.g.Player(playerID)
	return Actor{GameID: f.g.ID, PlayerID: playerID, TeamID: p.TeamID}
}

func (f *fixture) r() *Round {
	r, _ := f.g.Round(f.round)
	return r
}

func (f *fixture) active(t *testing.T) *Turn {
	t.Helper()
	turn, ok := f.r().ActiveTurn()
	if !ok {
		t.Fatal("no active turn")
	}
	return turn
}

// card returns the first unrevealed card of a category (and team).
func (f *fixture) card(t *testing.T, c Category, teamID string) Card {
	t.Helper()
	for _, card := range f.r().Cards {
		if !card.Revealed && card.Category == c && card.TeamID == teamID {
			return card
		}
	}
	t.Fatalf("no unrevealed %s card for %q", c, teamID)
	return Card{}
}

func (f *fixture) clue(t *testing.T, giver, word string, target int) Clue {
	t.Helper()
	g, c, err := GiveClue(f.g, f.env, f.active(t).ID, f.actor(giver), word, target)
	mustOK(t, err)
	f.g = g
	return c
}

func (f *fixture) guess(t *testing.T, player, cardID string) GuessResult {
	t.Helper()
	g, res, err := SubmitGuess(f.g, f.env, f.active(t).ID, f.actor(player), cardID)
	mustOK(t, err)
	f.g = g
	return res
}
