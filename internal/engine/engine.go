// internal/engine/engine.go
//
// Transactional shell around the rules in internal/game.
//
// Responsibilities:
//   - Serialise every operation on a game behind a per-game lock.
//   - Load the current snapshot, apply a pure transition, persist the
//     result with an optimistic version check. Nothing is persisted when
//     the transition fails.
//   - Fetch words for card allocation from the configured word source.
//   - Enforce host-only setup operations and resolve actors.
//   - Report invariant violations (log, optionally panic) and publish a
//     change event after every successful write.
//
// Listeners run while the game lock is held, so events for one game are
// delivered in version order. They must not block or call back into the
// engine.

package engine

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/internal/game"
	"github.com/robalobadob/codebreaker/internal/identity"
	"github.com/robalobadob/codebreaker/internal/store"
)

// WordSource supplies exactly count unique words from a deck, or an error.
type WordSource interface {
	FetchWords(ctx context.Context, count int, deckID, lang string) ([]string, error)
}

// Event kinds published to subscribers.
const (
	EventGameCreated    = "game.created"
	EventPlayerJoined   = "player.joined"
	EventPlayerStatus   = "player.status"
	EventGameStarted    = "game.started"
	EventRoundCreated   = "round.created"
	EventCardsAllocated = "cards.allocated"
	EventCardsRedealt   = "cards.redealt"
	EventRolesAssigned  = "roles.assigned"
	EventRoundStarted   = "round.started"
	EventTurnOpened     = "turn.opened"
	EventClueGiven      = "clue.given"
	EventGuessSubmitted = "guess.submitted"
	EventTurnEnded      = "turn.ended"
)

// Event announces a new version of a game.
type Event struct {
	GameID  string    `json:"gameId"`
	Kind    string    `json:"kind"`
	Version int       `json:"version"`
	At      time.Time `json:"at"`
}

// Engine runs game operations against a store.
type Engine struct {
	store store.Store
	words WordSource
	locks *keyedMutex

	now              func() time.Time
	newID            func() string
	rnd              game.Rand
	panicOnInvariant bool

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs overrides the id generator (uuid v4 by default).
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithRand sets the generator used to lay out boards.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rnd = &lockedRand{r: r} }
}

// WithPanicOnInvariant makes invariant violations panic after logging.
// Useful in development and tests.
func WithPanicOnInvariant(on bool) Option {
	return func(e *Engine) { e.panicOnInvariant = on }
}

// New returns an Engine persisting to st and drawing words from ws.
func New(st store.Store, ws WordSource, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		words: ws,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		subs:  make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.rnd == nil {
		var seed [32]byte
		// crypto/rand.Read never fails on Go 1.24+; it crashes instead.
		_, _ = crand.Read(seed[:])
		e.rnd = &lockedRand{r: rand.New(rand.NewChaCha8(seed))}
	}
	return e
}

// Subscribe registers fn for change events and returns its cancel func.
func (e *Engine) Subscribe(fn func(Event)) (cancel func()) {
	e.subMu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, fn := range e.subs {
		fn(ev)
	}
}

func (e *Engine) env() game.Env {
	return game.Env{Now: e.now(), NewID: e.newID, Rand: e.rnd}
}

// ------------------------------------------------------------------------
// Plumbing
// ------------------------------------------------------------------------

// mutate runs fn on the current snapshot of gameID under the game lock
// and persists what it returns.
func (e *Engine) mutate(ctx context.Context, kind, gameID string, fn func(cur *game.Game, env game.Env) (*game.Game, error)) (*game.Game, error) {
	unlock := e.locks.Lock(gameID)
	defer unlock()

	cur, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	env := e.env()
	next, err := fn(cur, env)
	if err != nil {
		return nil, e.fail(kind, gameID, err)
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = env.Now
	if err := e.store.Save(ctx, next, cur.Version); err != nil {
		return nil, fmt.Errorf("%s: save game %s: %w", kind, gameID, err)
	}

	log.Debug().Str("game", gameID).Str("event", kind).Int("version", next.Version).Msg("game updated")
	e.publish(Event{GameID: gameID, Kind: kind, Version: next.Version, At: env.Now})
	return next, nil
}

func (e *Engine) load(ctx context.Context, gameID string) (*game.Game, error) {
	g, err := e.store.Get(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &game.NotFoundError{Kind: "game", ID: gameID}
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return g, nil
}

// fail reports invariant violations; other errors pass through.
func (e *Engine) fail(op, gameID string, err error) error {
	var inv *game.InvariantError
	if !errors.As(err, &inv) {
		return err
	}
	ev := log.Error().Err(err).Str("op", op).Str("game", gameID)
	for k, v := range inv.Context {
		ev = ev.Str(k, v)
	}
	ev.Msg("invariant violated")
	if e.panicOnInvariant {
		panic(err)
	}
	return err
}

func (e *Engine) gameOfRound(ctx context.Context, roundID string) (string, error) {
	id, err := e.store.GameIDByRound(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return "", &game.NotFoundError{Kind: "round", ID: roundID}
	}
	return id, err
}

func (e *Engine) gameOfTurn(ctx context.Context, turnID string) (string, error) {
	id, err := e.store.GameIDByTurn(ctx, turnID)
	if errors.Is(err, store.ErrNotFound) {
		return "", &game.NotFoundError{Kind: "turn", ID: turnID}
	}
	return id, err
}

// requireHost admits the game's host and system actors.
func requireHost(g *game.Game, actor game.Actor, action string) error {
	if actor.GameID != g.ID {
		return &game.UnauthorizedActionError{PlayerID: actor.PlayerID, Action: action, Reason: "not a member of this game"}
	}
	if actor.System || (actor.PlayerID != "" && actor.PlayerID == g.HostID) {
		return nil
	}
	return &game.UnauthorizedActionError{PlayerID: actor.PlayerID, Action: action, Reason: "only the host may do this"}
}

func (e *Engine) fetchWords(ctx context.Context, g *game.Game, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	w, err := e.words.FetchWords(ctx, count, g.Settings.DeckID, g.Settings.Language)
	if err != nil {
		return nil, fmt.Errorf("fetch words: %w", err)
	}
	return w, nil
}

// ------------------------------------------------------------------------
// Lobby
// ------------------------------------------------------------------------

// CreateGameInput describes a new game and its host.
type CreateGameInput struct {
	Settings  game.Settings
	TeamNames []string
	HostName  string
	Passcode  string // optional; required from everyone else who joins
}

// CreateGame creates a game in LOBBY with its host as first player.
func (e *Engine) CreateGame(ctx context.Context, in CreateGameInput) (*game.Game, game.Player, error) {
	env := e.env()
	g, err := game.NewGame(env, in.Settings, in.TeamNames)
	if err != nil {
		return nil, game.Player{}, err
	}
	// fail early on a deck that can never fill a board
	if _, err := e.fetchWords(ctx, g, g.Settings.RoundSize); err != nil {
		return nil, game.Player{}, err
	}
	if in.Passcode != "" {
		h, err := identity.HashPasscode(in.Passcode)
		if err != nil {
			return nil, game.Player{}, &game.ValidationError{Field: "passcode", Reason: err.Error()}
		}
		g.PasscodeHash = h
	}
	g, host, err := game.AddPlayer(g, env, in.HostName, "")
	if err != nil {
		return nil, game.Player{}, err
	}
	g.Version = 1

	unlock := e.locks.Lock(g.ID)
	defer unlock()
	if err := e.store.Save(ctx, g, 0); err != nil {
		return nil, game.Player{}, fmt.Errorf("create game: %w", err)
	}
	log.Info().Str("game", g.ID).Int("teams", len(g.Teams)).Str("deck", g.Settings.DeckID).Msg("game created")
	e.publish(Event{GameID: g.ID, Kind: EventGameCreated, Version: g.Version, At: env.Now})
	return g, host, nil
}

// JoinGame adds a player. An empty teamID joins the smallest team.
func (e *Engine) JoinGame(ctx context.Context, gameID, name, teamID, passcode string) (*game.Game, game.Player, error) {
	var p game.Player
	g, err := e.mutate(ctx, EventPlayerJoined, gameID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		if !identity.CheckPasscode(cur.PasscodeHash, passcode) {
			return nil, &game.UnauthorizedActionError{Action: "join", Reason: "wrong passcode"}
		}
		next, added, err := game.AddPlayer(cur, env, name, teamID)
		p = added
		return next, err
	})
	if err != nil {
		return nil, game.Player{}, err
	}
	return g, p, nil
}

// SetPlayerStatus changes a player's status. Players may change their
// own; the host and system actors may change anyone's.
func (e *Engine) SetPlayerStatus(ctx context.Context, actor game.Actor, playerID string, status game.PlayerStatus) (game.Player, error) {
	var p game.Player
	_, err := e.mutate(ctx, EventPlayerStatus, actor.GameID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		if actor.PlayerID != playerID || actor.System {
			if err := requireHost(cur, actor, "change another player's status"); err != nil {
				return nil, err
			}
		} else if _, ok := cur.Player(actor.PlayerID); !ok {
			return nil, &game.UnauthorizedActionError{PlayerID: actor.PlayerID, Action: "change status", Reason: "unknown player"}
		}
		next, updated, err := game.SetPlayerStatus(cur, playerID, status)
		p = updated
		return next, err
	})
	return p, err
}

// StartGame leaves the lobby.
func (e *Engine) StartGame(ctx context.Context, actor game.Actor, gameID string) (*game.Game, error) {
	return e.mutate(ctx, EventGameStarted, gameID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		if err := requireHost(cur, actor, "start the game"); err != nil {
			return nil, err
		}
		return game.StartGame(cur)
	})
}

// ------------------------------------------------------------------------
// Round setup
// ------------------------------------------------------------------------

// CreateRound opens the next round in SETUP.
func (e *Engine) CreateRound(ctx context.Context, actor game.Actor, gameID string) (game.Round, error) {
	var r game.Round
	_, err := e.mutate(ctx, EventRoundCreated, gameID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		if err := requireHost(cur, actor, "create a round"); err != nil {
			return nil, err
		}
		next, created, err := game.CreateRound(cur, env)
		r = created
		return next, err
	})
	return r, err
}

// roundOp runs fn for the game that owns roundID after checking the host.
func (e *Engine) roundOp(ctx context.Context, kind string, actor game.Actor, roundID, action string, fn func(cur *game.Game, env game.Env) (*game.Game, error)) error {
	gameID, err := e.gameOfRound(ctx, roundID)
	if err != nil {
		return err
	}
	_, err = e.mutate(ctx, kind, gameID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		if err := requireHost(cur, actor, action); err != nil {
			return nil, err
		}
		return fn(cur, env)
	})
	return err
}

// AllocateCards deals size cards over teamCount teams with trapCount
// traps, drawing words from the game's deck.
func (e *Engine) AllocateCards(ctx context.Context, actor game.Actor, roundID string, size, teamCount, trapCount int) ([]game.Card, error) {
	var cards []game.Card
	err := e.roundOp(ctx, EventCardsAllocated, actor, roundID, "deal cards", func(cur *game.Game, env game.Env) (*game.Game, error) {
		words, err := e.fetchWords(ctx, cur, size)
		if err != nil {
			return nil, err
		}
		next, dealt, err := game.AllocateCards(cur, env, roundID, size, teamCount, trapCount, words)
		cards = dealt
		return next, err
	})
	return cards, err
}

// RedealCards replaces a SETUP round's board with fresh words.
func (e *Engine) RedealCards(ctx context.Context, actor game.Actor, roundID string) ([]game.Card, error) {
	var cards []game.Card
	err := e.roundOp(ctx, EventCardsRedealt, actor, roundID, "redeal cards", func(cur *game.Game, env game.Env) (*game.Game, error) {
		var words []string
		if r, ok := cur.Round(roundID); ok && r.Status == game.RoundSetup && r.Distribution != nil {
			w, err := e.fetchWords(ctx, cur, r.Distribution.Total())
			if err != nil {
				return nil, err
			}
			words = w
		}
		next, dealt, err := game.RedealCards(cur, env, roundID, words)
		cards = dealt
		return next, err
	})
	return cards, err
}

// AssignRoles picks each team's clue-giver for the round.
func (e *Engine) AssignRoles(ctx context.Context, actor game.Actor, roundID string) ([]game.RoleAssignment, error) {
	var roles []game.RoleAssignment
	err := e.roundOp(ctx, EventRolesAssigned, actor, roundID, "assign roles", func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, assigned, err := game.AssignRoles(cur, roundID)
		roles = assigned
		return next, err
	})
	return roles, err
}

// StartRound moves a round to IN_PROGRESS.
func (e *Engine) StartRound(ctx context.Context, actor game.Actor, roundID string) (game.Round, error) {
	var r game.Round
	err := e.roundOp(ctx, EventRoundStarted, actor, roundID, "start the round", func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, started, err := game.StartRound(cur, env, roundID)
		r = started
		return next, err
	})
	return r, err
}

// OpenTurn opens a turn for the team due to play.
func (e *Engine) OpenTurn(ctx context.Context, actor game.Actor, roundID, teamID string) (game.Turn, error) {
	var t game.Turn
	err := e.roundOp(ctx, EventTurnOpened, actor, roundID, "open a turn", func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, opened, err := game.OpenTurn(cur, env, roundID, teamID)
		t = opened
		return next, err
	})
	return t, err
}

// ------------------------------------------------------------------------
// Turns
// ------------------------------------------------------------------------

func (e *Engine) turnOp(ctx context.Context, kind string, actor game.Actor, turnID string, fn func(cur *game.Game, env game.Env) (*game.Game, error)) error {
	gameID, err := e.gameOfTurn(ctx, turnID)
	if err != nil {
		return err
	}
	if actor.GameID != gameID {
		return &game.UnauthorizedActionError{PlayerID: actor.PlayerID, Action: "act", Reason: "not a member of this game"}
	}
	_, err = e.mutate(ctx, kind, gameID, fn)
	return err
}

// GiveClue attaches the clue to an OPEN turn.
func (e *Engine) GiveClue(ctx context.Context, actor game.Actor, turnID, word string, target int) (game.Clue, error) {
	var c game.Clue
	err := e.turnOp(ctx, EventClueGiven, actor, turnID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, clue, err := game.GiveClue(cur, env, turnID, actor, word, target)
		c = clue
		return next, err
	})
	return c, err
}

// SubmitGuess reveals a card for the actor's team.
func (e *Engine) SubmitGuess(ctx context.Context, actor game.Actor, turnID, cardID string) (game.GuessResult, error) {
	var res game.GuessResult
	err := e.turnOp(ctx, EventGuessSubmitted, actor, turnID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, r, err := game.SubmitGuess(cur, env, turnID, actor, cardID)
		res = r
		return next, err
	})
	if err == nil && res.RoundCompleted {
		log.Info().Str("game", actor.GameID).Str("winner", res.WinnerTeamID).Bool("gameOver", res.GameCompleted).Msg("round completed")
	}
	return res, err
}

// EndTurn completes a CLUED turn, or lets the system skip an OPEN one.
func (e *Engine) EndTurn(ctx context.Context, actor game.Actor, turnID string) (game.TurnChange, error) {
	var tc game.TurnChange
	err := e.turnOp(ctx, EventTurnEnded, actor, turnID, func(cur *game.Game, env game.Env) (*game.Game, error) {
		next, change, err := game.EndTurn(cur, env, turnID, actor)
		tc = change
		return next, err
	})
	return tc, err
}

// ------------------------------------------------------------------------
// Reads
// ------------------------------------------------------------------------

// Game returns the current snapshot of a game.
func (e *Engine) Game(ctx context.Context, gameID string) (*game.Game, error) {
	return e.load(ctx, gameID)
}

// GameByRound returns the game owning roundID.
func (e *Engine) GameByRound(ctx context.Context, roundID string) (*game.Game, error) {
	id, err := e.gameOfRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return e.load(ctx, id)
}

// GameByTurn returns the game owning turnID.
func (e *Engine) GameByTurn(ctx context.Context, turnID string) (*game.Game, error) {
	id, err := e.gameOfTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}
	return e.load(ctx, id)
}

// ResolveActor builds the actor for a player from the stored game: team
// and role come from the game's own records, never from the caller.
func (e *Engine) ResolveActor(ctx context.Context, gameID, playerID string) (game.Actor, error) {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return game.Actor{}, err
	}
	return ActorOf(g, playerID)
}

// ActorOf resolves playerID against a snapshot.
func ActorOf(g *game.Game, playerID string) (game.Actor, error) {
	p, ok := g.Player(playerID)
	if !ok {
		return game.Actor{}, &game.NotFoundError{Kind: "player", ID: playerID}
	}
	a := game.Actor{GameID: g.ID, PlayerID: p.ID, TeamID: p.TeamID}
	if r, ok := g.CurrentRound(); ok {
		if role, ok := r.RoleOf(p.ID); ok {
			a.Role = role
		}
	}
	return a, nil
}
