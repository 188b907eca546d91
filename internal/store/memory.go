// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for development, tests, and single-process deployments where
// durability is not required.
//
// Characteristics:
//   - Stores deep copies of *game.Game keyed by ID.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"

	"github.com/robalobadob/codebreaker/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex          // guards the maps below
	games  map[string]*game.Game // keyed by Game.ID
	rounds map[string]string     // round id -> game id
	turns  map[string]string     // turn id -> game id
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		games:  make(map[string]*game.Game),
		rounds: make(map[string]string),
		turns:  make(map[string]string),
	}
}

// Save stores a copy of g after the version check.
func (m *memory) Save(ctx context.Context, g *game.Game, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.games[g.ID]
	switch {
	case expected == 0 && exists:
		return ErrConflict
	case expected != 0 && !exists:
		return ErrNotFound
	case exists && cur.Version != expected:
		return ErrConflict
	}

	m.games[g.ID] = g.Clone()
	rounds, turns := childIDs(g)
	for _, id := range rounds {
		m.rounds[id] = g.ID
	}
	for _, id := range turns {
		m.turns[id] = g.ID
	}
	return nil
}

// Get returns a copy of the stored game.
func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *memory) GameIDByRound(ctx context.Context, roundID string) (string, error) {
	return m.lookup(m.rounds, roundID)
}

func (m *memory) GameIDByTurn(ctx context.Context, turnID string) (string, error) {
	return m.lookup(m.turns, turnID)
}

func (m *memory) lookup(index map[string]string, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gid, ok := index[id]; ok {
		return gid, nil
	}
	return "", ErrNotFound
}

func (m *memory) Close() error { return nil }
