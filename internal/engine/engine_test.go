package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/codebreaker/internal/game"
	"github.com/robalobadob/codebreaker/internal/store"
	"github.com/robalobadob/codebreaker/internal/words"
)

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func wordList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("word%02d", i)
	}
	return out
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	lib := words.NewLibrary(rand.New(rand.NewPCG(1, 2)))
	lib.Add(game.DefaultDeckID, game.DefaultLanguage, wordList(60))

	var mu sync.Mutex
	n := 0
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDs(ids),
		WithRand(rand.New(rand.NewPCG(3, 4))),
	}
	return New(store.NewMemoryStore(), lib, append(base, opts...)...)
}

// table is a two-team game: alice (host) and bob on Red, carol and dave
// on Blue.
type table struct {
	e      *Engine
	ctx    context.Context
	gameID string
	red    string
	blue   string

	alice, bob, carol, dave game.Actor
	round                   string
}

func newTable(t *testing.T, e *Engine, passcode string) *table {
	t.Helper()
	ctx := context.Background()
	g, host, err := e.CreateGame(ctx, CreateGameInput{
		Settings:  game.DefaultSettings(),
		TeamNames: []string{"Red", "Blue"},
		HostName:  "alice",
		Passcode:  passcode,
	})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	tb := &table{e: e, ctx: ctx, gameID: g.ID, red: g.Teams[0].ID, blue: g.Teams[1].ID}
	if host.TeamID != tb.red {
		t.Fatalf("host joined %s, want Red", host.TeamID)
	}
	join := func(name, team string) string {
		_, p, err := e.JoinGame(ctx, g.ID, name, team, passcode)
		if err != nil {
			t.Fatalf("JoinGame(%s): %v", name, err)
		}
		return p.ID
	}
	bob := join("bob", tb.red)
	carol := join("carol", tb.blue)
	dave := join("dave", tb.blue)
	tb.alice = tb.resolve(t, host.ID)
	tb.bob = tb.resolve(t, bob)
	tb.carol = tb.resolve(t, carol)
	tb.dave = tb.resolve(t, dave)
	return tb
}

func (tb *table) resolve(t *testing.T, playerID string) game.Actor {
	t.Helper()
	a, err := tb.e.ResolveActor(tb.ctx, tb.gameID, playerID)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	return a
}

// setup starts the game and prepares round 1 up to role assignment.
func (tb *table) setup(t *testing.T) {
	t.Helper()
	if _, err := tb.e.StartGame(tb.ctx, tb.alice, tb.gameID); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	r, err := tb.e.CreateRound(tb.ctx, tb.alice, tb.gameID)
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	tb.round = r.ID
	if _, err := tb.e.AllocateCards(tb.ctx, tb.alice, r.ID, 25, 2, 1); err != nil {
		t.Fatalf("AllocateCards: %v", err)
	}
	if _, err := tb.e.AssignRoles(tb.ctx, tb.alice, r.ID); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
}

func (tb *table) start(t *testing.T) {
	t.Helper()
	tb.setup(t)
	if _, err := tb.e.StartRound(tb.ctx, tb.alice, tb.round); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
}

func (tb *table) game(t *testing.T) *game.Game {
	t.Helper()
	g, err := tb.e.Game(tb.ctx, tb.gameID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	return g
}

func (tb *table) activeTurn(t *testing.T) game.Turn {
	t.Helper()
	g := tb.game(t)
	r, _ := g.Round(tb.round)
	turn, ok := r.ActiveTurn()
	if !ok {
		t.Fatal("no active turn")
	}
	return *turn
}

func (tb *table) cards(t *testing.T, c game.Category, teamID string) []game.Card {
	t.Helper()
	g := tb.game(t)
	r, _ := g.Round(tb.round)
	var out []game.Card
	for _, card := range r.Cards {
		if !card.Revealed && card.Category == c && card.TeamID == teamID {
			out = append(out, card)
		}
	}
	return out
}

func TestSetup_NineCardBoardOpensFirstTurn(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)

	g := tb.game(t)
	r, _ := g.Round(tb.round)
	counts := map[string]int{}
	for _, c := range r.Cards {
		counts[string(c.Category)+c.TeamID]++
	}
	want := map[string]int{
		"TEAM" + tb.red:  9,
		"TEAM" + tb.blue: 8,
		"NEUTRAL":        7,
		"TRAP":           1,
	}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("%s: %d cards, want %d", k, counts[k], n)
		}
	}
	if giver, _ := r.ClueGiver(tb.red); giver != tb.alice.PlayerID {
		t.Errorf("red clue-giver = %s, want alice", giver)
	}
	if giver, _ := r.ClueGiver(tb.blue); giver != tb.carol.PlayerID {
		t.Errorf("blue clue-giver = %s, want carol", giver)
	}
	if turn := tb.activeTurn(t); turn.TeamID != tb.red || turn.Phase != game.PhaseOpen {
		t.Fatalf("first turn = %+v", turn)
	}

	// roles are resolved from the stored game
	bob := tb.resolve(t, tb.bob.PlayerID)
	if bob.Role != game.RoleGuesser {
		t.Fatalf("bob role = %s", bob.Role)
	}
}

func TestGuess_CorrectThenNeutralEndsTurn(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)

	if _, err := tb.e.GiveClue(tb.ctx, tb.resolve(t, tb.alice.PlayerID), turn.ID, "fruit", 2); err != nil {
		t.Fatalf("GiveClue: %v", err)
	}
	bob := tb.resolve(t, tb.bob.PlayerID)
	red := tb.cards(t, game.CategoryTeam, tb.red)
	for _, c := range red[:2] {
		res, err := tb.e.SubmitGuess(tb.ctx, bob, turn.ID, c.ID)
		if err != nil {
			t.Fatalf("SubmitGuess: %v", err)
		}
		if res.Outcome != game.OutcomeCorrectTeam || res.TurnCompleted {
			t.Fatalf("res = %+v", res)
		}
	}
	neutral := tb.cards(t, game.CategoryNeutral, "")[0]
	res, err := tb.e.SubmitGuess(tb.ctx, bob, turn.ID, neutral.ID)
	if err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if res.Outcome != game.OutcomeNeutral || !res.TurnCompleted || res.NextTurn == nil || res.NextTurn.TeamID != tb.blue {
		t.Fatalf("res = %+v", res)
	}

	g := tb.game(t)
	team, _ := g.Team(tb.red)
	if team.Score != 2 {
		t.Fatalf("score = %d, want 2", team.Score)
	}
}

func TestGuess_TrapEndsGame(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)

	if _, err := tb.e.GiveClue(tb.ctx, tb.alice, turn.ID, "fruit", 3); err != nil {
		t.Fatalf("GiveClue: %v", err)
	}
	trap := tb.cards(t, game.CategoryTrap, "")[0]
	res, err := tb.e.SubmitGuess(tb.ctx, tb.resolve(t, tb.bob.PlayerID), turn.ID, trap.ID)
	if err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if res.Outcome != game.OutcomeTrap || !res.RoundCompleted || !res.GameCompleted || res.WinnerTeamID != tb.blue {
		t.Fatalf("res = %+v", res)
	}
	if res.Turn.RemainingGuesses != 3 {
		t.Fatalf("remaining = %d, want 3", res.Turn.RemainingGuesses)
	}
	if g := tb.game(t); g.Status != game.GameCompleted || g.WinnerTeamID != tb.blue {
		t.Fatalf("game = %s winner %s", g.Status, g.WinnerTeamID)
	}
}

func TestGiveClue_RejectedClueIsNotPersisted(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)
	before := tb.game(t)

	_, err := tb.e.GiveClue(tb.ctx, tb.resolve(t, tb.bob.PlayerID), turn.ID, "fruit", 2)
	var ua *game.UnauthorizedActionError
	if !errors.As(err, &ua) {
		t.Fatalf("err = %v, want UnauthorizedActionError", err)
	}
	after := tb.game(t)
	if after.Version != before.Version {
		t.Fatalf("version moved from %d to %d", before.Version, after.Version)
	}
	if got := tb.activeTurn(t); got.Clue != nil || got.Phase != game.PhaseOpen {
		t.Fatalf("turn changed: %+v", got)
	}
}

func TestConcurrentGuesses(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)
	if _, err := tb.e.GiveClue(tb.ctx, tb.alice, turn.ID, "fruit", 8); err != nil {
		t.Fatalf("GiveClue: %v", err)
	}
	before := tb.game(t).Version
	bob := tb.resolve(t, tb.bob.PlayerID)
	red := tb.cards(t, game.CategoryTeam, tb.red)[:5]

	var wg sync.WaitGroup
	errs := make(chan error, len(red))
	for _, c := range red {
		wg.Add(1)
		go func(cardID string) {
			defer wg.Done()
			_, err := tb.e.SubmitGuess(tb.ctx, bob, turn.ID, cardID)
			errs <- err
		}(c.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SubmitGuess: %v", err)
		}
	}

	g := tb.game(t)
	if g.Version != before+len(red) {
		t.Fatalf("version = %d, want %d", g.Version, before+len(red))
	}
	r, _ := g.Round(tb.round)
	cur, _ := r.ActiveTurn()
	if len(cur.Guesses) != 5 || cur.RemainingGuesses != 4 {
		t.Fatalf("guesses = %d remaining = %d", len(cur.Guesses), cur.RemainingGuesses)
	}
	for i, gs := range cur.Guesses {
		if gs.Seq != i+1 {
			t.Fatalf("guess %d has seq %d", i, gs.Seq)
		}
	}
	if team, _ := g.Team(tb.red); team.Score != 5 {
		t.Fatalf("score = %d", team.Score)
	}
	if n := tb.e.locks.size(); n != 0 {
		t.Fatalf("%d locks left behind", n)
	}
}

func TestRedealRacesStartRound(t *testing.T) {
	for i := 0; i < 20; i++ {
		tb := newTable(t, newEngine(t), "")
		tb.setup(t)

		var wg sync.WaitGroup
		var redealErr, startErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, redealErr = tb.e.RedealCards(tb.ctx, tb.alice, tb.round)
		}()
		go func() {
			defer wg.Done()
			_, startErr = tb.e.StartRound(tb.ctx, tb.alice, tb.round)
		}()
		wg.Wait()

		if startErr != nil {
			t.Fatalf("StartRound: %v", startErr)
		}
		var lt *game.InvalidLifecycleTransitionError
		if redealErr != nil && !errors.As(redealErr, &lt) {
			t.Fatalf("redeal err = %v", redealErr)
		}
		g := tb.game(t)
		r, _ := g.Round(tb.round)
		if r.Status != game.RoundInProgress || len(r.Cards) != 25 {
			t.Fatalf("round %s with %d cards", r.Status, len(r.Cards))
		}
	}
}

func TestHostOnlySetup(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	var ua *game.UnauthorizedActionError

	if _, err := tb.e.StartGame(tb.ctx, tb.bob, tb.gameID); !errors.As(err, &ua) {
		t.Fatalf("bob StartGame: err = %v", err)
	}
	if _, err := tb.e.StartGame(tb.ctx, tb.alice, tb.gameID); err != nil {
		t.Fatalf("alice StartGame: %v", err)
	}
	r, err := tb.e.CreateRound(tb.ctx, game.SystemActor(tb.gameID), tb.gameID)
	if err != nil {
		t.Fatalf("system CreateRound: %v", err)
	}
	if _, err := tb.e.AllocateCards(tb.ctx, tb.carol, r.ID, 25, 2, 1); !errors.As(err, &ua) {
		t.Fatalf("carol AllocateCards: err = %v", err)
	}

	// actors of another game are rejected
	other := newTable(t, tb.e, "")
	if _, err := tb.e.AllocateCards(tb.ctx, other.alice, r.ID, 25, 2, 1); !errors.As(err, &ua) {
		t.Fatalf("foreign host: err = %v", err)
	}
}

func TestJoinPasscode(t *testing.T) {
	e := newEngine(t)
	tb := newTable(t, e, "swordfish")

	_, _, err := e.JoinGame(tb.ctx, tb.gameID, "eve", "", "guess")
	var ua *game.UnauthorizedActionError
	if !errors.As(err, &ua) {
		t.Fatalf("wrong passcode: err = %v", err)
	}
	g, p, err := e.JoinGame(tb.ctx, tb.gameID, "eve", "", "swordfish")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if len(g.Players) != 5 || p.Name != "eve" {
		t.Fatalf("players = %d, joined %+v", len(g.Players), p)
	}
}

func TestSetPlayerStatus(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	var ua *game.UnauthorizedActionError

	if _, err := tb.e.SetPlayerStatus(tb.ctx, tb.bob, tb.bob.PlayerID, game.PlayerInactive); err != nil {
		t.Fatalf("self: %v", err)
	}
	if _, err := tb.e.SetPlayerStatus(tb.ctx, tb.bob, tb.carol.PlayerID, game.PlayerInactive); !errors.As(err, &ua) {
		t.Fatalf("other: err = %v", err)
	}
	p, err := tb.e.SetPlayerStatus(tb.ctx, tb.alice, tb.carol.PlayerID, game.PlayerInactive)
	if err != nil || p.Status != game.PlayerInactive {
		t.Fatalf("host: %+v %v", p, err)
	}
	// bob is inactive, so Red is one player short
	var lt *game.InvalidLifecycleTransitionError
	if _, err := tb.e.StartGame(tb.ctx, tb.alice, tb.gameID); !errors.As(err, &lt) {
		t.Fatalf("StartGame: err = %v", err)
	}
}

func TestErrors(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	s := game.DefaultSettings()
	s.RoundSize = 100
	_, _, err := e.CreateGame(ctx, CreateGameInput{Settings: s, HostName: "alice"})
	var iw *game.InsufficientWordsError
	if !errors.As(err, &iw) || iw.Requested != 100 || iw.Available != 60 {
		t.Fatalf("big board: err = %v", err)
	}

	_, _, err = e.CreateGame(ctx, CreateGameInput{Settings: game.DefaultSettings(), HostName: "alice", Passcode: "ab"})
	var ve *game.ValidationError
	if !errors.As(err, &ve) || ve.Field != "passcode" {
		t.Fatalf("short passcode: err = %v", err)
	}

	var nf *game.NotFoundError
	if _, err := e.Game(ctx, "nope"); !errors.As(err, &nf) || nf.Kind != "game" {
		t.Fatalf("Game: err = %v", err)
	}
	if _, err := e.AllocateCards(ctx, game.Actor{}, "nope", 25, 2, 1); !errors.As(err, &nf) || nf.Kind != "round" {
		t.Fatalf("AllocateCards: err = %v", err)
	}
	if _, err := e.EndTurn(ctx, game.Actor{}, "nope"); !errors.As(err, &nf) || nf.Kind != "turn" {
		t.Fatalf("EndTurn: err = %v", err)
	}

	tb := newTable(t, e, "")
	if _, err := e.ResolveActor(ctx, tb.gameID, "ghost"); !errors.As(err, &nf) || nf.Kind != "player" {
		t.Fatalf("ResolveActor: err = %v", err)
	}
}

func TestEndTurnAndLookups(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)
	if _, err := tb.e.GiveClue(tb.ctx, tb.alice, turn.ID, "fruit", 1); err != nil {
		t.Fatalf("GiveClue: %v", err)
	}
	tc, err := tb.e.EndTurn(tb.ctx, game.SystemActor(tb.gameID), turn.ID)
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if tc.Turn.EndReason != game.EndedByPlayer || tc.NextTurn == nil || tc.NextTurn.TeamID != tb.blue {
		t.Fatalf("change = %+v", tc)
	}

	for name, fn := range map[string]func() (*game.Game, error){
		"round": func() (*game.Game, error) { return tb.e.GameByRound(tb.ctx, tb.round) },
		"turn":  func() (*game.Game, error) { return tb.e.GameByTurn(tb.ctx, tc.NextTurn.ID) },
	} {
		g, err := fn()
		if err != nil || g.ID != tb.gameID {
			t.Fatalf("GameBy%s: %v", name, err)
		}
	}
}

func TestSubscribe(t *testing.T) {
	e := newEngine(t)
	var mu sync.Mutex
	var got []Event
	cancel := e.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	tb := newTable(t, e, "")
	tb.start(t)
	cancel()
	if _, err := e.GiveClue(tb.ctx, tb.alice, tb.activeTurn(t).ID, "fruit", 1); err != nil {
		t.Fatal(err)
	}

	wantKinds := []string{
		EventGameCreated, EventPlayerJoined, EventPlayerJoined, EventPlayerJoined,
		EventGameStarted, EventRoundCreated, EventCardsAllocated, EventRolesAssigned, EventRoundStarted,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(wantKinds) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(wantKinds), got)
	}
	for i, ev := range got {
		if ev.Kind != wantKinds[i] || ev.Version != i+1 || ev.GameID != tb.gameID {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
}

func TestInvariantReporting(t *testing.T) {
	inv := &game.InvariantError{Op: "guess", Detail: "broken", Context: map[string]string{"round": "r1"}}

	e := newEngine(t)
	if err := e.fail("guess", "g1", inv); !errors.Is(err, inv) {
		t.Fatalf("err = %v", err)
	}
	plain := errors.New("plain")
	if err := e.fail("guess", "g1", plain); err != plain {
		t.Fatalf("err = %v", err)
	}

	strict := newEngine(t, WithPanicOnInvariant(true))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	_ = strict.fail("guess", "g1", inv)
}

func TestNew_SeedsItsOwnRandomness(t *testing.T) {
	lib := words.NewLibrary(nil)
	lib.Add(game.DefaultDeckID, game.DefaultLanguage, wordList(60))
	tb := newTable(t, New(store.NewMemoryStore(), lib), "")
	tb.start(t)

	r, _ := tb.game(t).Round(tb.round)
	if len(r.Cards) != 25 {
		t.Fatalf("cards = %d, want 25", len(r.Cards))
	}
	if _, ok := r.ActiveTurn(); !ok {
		t.Fatal("no active turn")
	}
}

func TestEndTurn_SystemSkipsTurnOfInactiveClueGiver(t *testing.T) {
	tb := newTable(t, newEngine(t), "")
	tb.start(t)
	turn := tb.activeTurn(t)

	if _, err := tb.e.SetPlayerStatus(tb.ctx, tb.alice, tb.alice.PlayerID, game.PlayerInactive); err != nil {
		t.Fatalf("SetPlayerStatus: %v", err)
	}
	var ua *game.UnauthorizedActionError
	if _, err := tb.e.GiveClue(tb.ctx, tb.alice, turn.ID, "ocean", 1); !errors.As(err, &ua) {
		t.Fatalf("inactive clue-giver: err = %v", err)
	}
	var ts *game.InvalidTurnStateError
	if _, err := tb.e.EndTurn(tb.ctx, tb.bob, turn.ID); !errors.As(err, &ts) {
		t.Fatalf("player ending an open turn: err = %v", err)
	}

	tc, err := tb.e.EndTurn(tb.ctx, game.SystemActor(tb.gameID), turn.ID)
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if tc.Turn.EndReason != game.EndedSkipped || tc.NextTurn == nil || tc.NextTurn.TeamID != tb.blue {
		t.Fatalf("turn change = %+v", tc)
	}
}
