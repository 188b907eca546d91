package game

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// rotationGame is an in-progress game with one team of three (a, b, c,
// joined in that order) and one team of two (x, y).
func rotationGame(t *testing.T, window int) *Game {
	t.Helper()
	env := testEnv()
	s := DefaultSettings()
	s.RotationWindow = window
	g, err := NewGame(env, s, nil)
	mustOK(t, err)
	for _, p := range []struct{ name, team string }{
		{"a", g.Teams[0].ID}, {"b", g.Teams[0].ID}, {"c", g.Teams[0].ID},
		{"x", g.Teams[1].ID}, {"y", g.Teams[1].ID},
	} {
		g, _, err = AddPlayer(g, env, p.name, p.team)
		mustOK(t, err)
	}
	g, err = StartGame(g)
	mustOK(t, err)
	return g
}

// giverSequence assigns roles for n consecutive rounds and returns the
// clue-giver names of team 0 joined by commas.
func giverSequence(t *testing.T, g *Game, n int) string {
	t.Helper()
	var names []string
	for seq := 1; seq <= n; seq++ {
		g.Rounds = append(g.Rounds, Round{ID: fmt.Sprintf("r%d", seq), Seq: seq, Status: RoundSetup})
		next, _, err := AssignRoles(g, fmt.Sprintf("r%d", seq))
		mustOK(t, err)
		r, _ := next.Round(fmt.Sprintf("r%d", seq))
		id, ok := r.ClueGiver(next.Teams[0].ID)
		if !ok {
			t.Fatalf("round %d: no clue-giver", seq)
		}
		p, _ := next.Player(id)
		names = append(names, p.Name)
		r.Status = RoundCompleted
		g = next
	}
	return strings.Join(names, ",")
}

func TestAssignRoles_Rotation(t *testing.T) {
	cases := []struct {
		window int
		want   string
	}{
		{0, "a,b,c,a,b,c"},
		{1, "a,b,c,a,b,c"},
		{2, "a,b,c,a,b,c"},
		{5, "a,b,c,a,b,c"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("window=%d", tc.window), func(t *testing.T) {
			got := giverSequence(t, rotationGame(t, tc.window), 6)
			if got != tc.want {
				t.Fatalf("clue-givers = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAssignRoles_RolesPerTeam(t *testing.T) {
	g := rotationGame(t, 0)
	b, _ := g.Player(g.Players[1].ID)
	b.Status = PlayerInactive
	g.Rounds = append(g.Rounds, Round{ID: "r1", Seq: 1, Status: RoundSetup})

	next, roles, err := AssignRoles(g, "r1")
	mustOK(t, err)
	if len(roles) != len(g.Players) {
		t.Fatalf("len(roles) = %d, want %d", len(roles), len(g.Players))
	}
	want := map[string]Role{"a": RoleClueGiver, "b": RoleObserver, "c": RoleGuesser, "x": RoleClueGiver, "y": RoleGuesser}
	for _, a := range roles {
		p, _ := next.Player(a.PlayerID)
		if a.Role != want[p.Name] {
			t.Errorf("%s: role %s, want %s", p.Name, a.Role, want[p.Name])
		}
		if a.TeamID != p.TeamID || a.RoundID != "r1" {
			t.Errorf("%s: assignment %+v", p.Name, a)
		}
	}
	if len(g.Rounds[0].Roles) != 0 {
		t.Fatal("AssignRoles mutated its input")
	}
}

func TestAssignRoles_InactiveClueGiverIsSkipped(t *testing.T) {
	g := rotationGame(t, 0)
	a, _ := g.Player(g.Players[0].ID)
	a.Status = PlayerInactive
	if got := giverSequence(t, g, 3); got != "b,c,b" {
		t.Fatalf("clue-givers = %s, want b,c,b", got)
	}
}

func TestAssignRoles_ReassignReplaces(t *testing.T) {
	g := rotationGame(t, 0)
	g.Rounds = append(g.Rounds, Round{ID: "r1", Seq: 1, Status: RoundSetup})
	g, _, err := AssignRoles(g, "r1")
	mustOK(t, err)
	g, _, err = AssignRoles(g, "r1")
	mustOK(t, err)
	if n := len(g.Rounds[0].Roles); n != len(g.Players) {
		t.Fatalf("roles after reassign = %d, want %d", n, len(g.Players))
	}
}

func TestAssignRoles_Errors(t *testing.T) {
	g := rotationGame(t, 0)
	for i := range g.Players {
		if g.Players[i].TeamID == g.Teams[1].ID {
			g.Players[i].Status = PlayerInactive
		}
	}
	g.Rounds = append(g.Rounds, Round{ID: "r1", Seq: 1, Status: RoundSetup})

	_, _, err := AssignRoles(g, "r1")
	var ne *NoEligiblePlayersError
	if !errors.As(err, &ne) || ne.TeamID != g.Teams[1].ID {
		t.Fatalf("err = %v, want NoEligiblePlayersError for team 1", err)
	}

	g.Rounds[0].Status = RoundInProgress
	_, _, err = AssignRoles(g, "r1")
	var lt *InvalidLifecycleTransitionError
	if !errors.As(err, &lt) {
		t.Fatalf("in-progress round: err = %v", err)
	}

	_, _, err = AssignRoles(g, "nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("unknown round: err = %v", err)
	}
}

func TestPickClueGiver_WindowPrefersLeastRecent(t *testing.T) {
	players := []Player{{ID: "a", Seq: 1}, {ID: "b", Seq: 2}, {ID: "c", Seq: 3}, {ID: "d", Seq: 4}}
	cases := []struct {
		name   string
		last   map[string]int
		window int
		want   string
	}{
		{"never served first", map[string]int{"a": 3, "b": 1}, 1, "c"},
		{"oldest outside window", map[string]int{"a": 2, "b": 1, "c": 4, "d": 3}, 1, "b"},
		{"all inside window", map[string]int{"a": 4, "b": 3, "c": 2, "d": 1}, 9, "d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pickClueGiver(players, tc.last, 5, tc.window); got != tc.want {
				t.Fatalf("pickClueGiver = %s, want %s", got, tc.want)
			}
		})
	}
}
