// internal/store/store.go
//
// Persistence for game aggregates.
// Responsibilities:
//   - Define the Store interface used by the engine.
//   - Optimistic versioning: Save succeeds only when the stored version
//     equals the version the caller loaded (0 = create).
//   - Secondary lookups from round and turn ids to their game.
//   - Open a backend by driver name (memory, sqlite, postgres).
//
// Backends never hand out shared pointers: callers always receive and
// keep their own copy of a game.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalobadob/codebreaker/internal/game"
)

var (
	// ErrNotFound is returned for unknown game, round or turn ids.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when the stored version moved on since the
	// caller loaded the game, or when creating a game that already exists.
	ErrConflict = errors.New("store: version conflict")
)

// Store persists game aggregates.
type Store interface {
	// Save writes g if the stored version equals expected. expected == 0
	// creates the game. g.Version must already hold the new version.
	Save(ctx context.Context, g *game.Game, expected int) error

	// Get retrieves a game by ID.
	Get(ctx context.Context, id string) (*game.Game, error)

	// GameIDByRound and GameIDByTurn resolve child ids to their game.
	GameIDByRound(ctx context.Context, roundID string) (string, error)
	GameIDByTurn(ctx context.Context, turnID string) (string, error)

	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the backend for driver. SQL backends are migrated before
// they are returned.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

// Migrate applies the schema of a SQL backend without serving from it.
func Migrate(ctx context.Context, driver, dsn string) error {
	s, err := Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	return s.Close()
}

// childIDs lists the round and turn ids of g for the lookup indexes.
func childIDs(g *game.Game) (rounds, turns []string) {
	for _, r := range g.Rounds {
		rounds = append(rounds, r.ID)
		for _, t := range r.Turns {
			turns = append(turns, t.ID)
		}
	}
	return rounds, turns
}
