// internal/words/words.go
//
// Word source for card allocation.
//
// Responsibilities:
//   - Hold decks of words keyed by (deck id, language).
//   - Load the embedded decks and, optionally, a directory of deck files
//     that add to or replace them.
//   - Supply FetchWords: exactly count distinct words drawn uniformly at
//     random from one deck, or an error.
//
// Deck files:
//   <deck>.<language>.txt, one word per line, blank lines and lines
//   starting with # are ignored. Words are lowercased and deduplicated.
//
// Randomness comes from a ChaCha8 generator seeded from crypto/rand, so
// boards cannot be predicted by players.

package words

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/robalobadob/codebreaker/assets"
	"github.com/robalobadob/codebreaker/internal/game"
)

// DeckInfo describes a loaded deck.
type DeckInfo struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Size     int    `json:"size"`
}

type deckKey struct{ id, lang string }

// Library is a concurrency-safe set of decks.
type Library struct {
	mu    sync.RWMutex
	decks map[deckKey][]string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewLibrary returns an empty library. A nil r selects a ChaCha8
// generator seeded from crypto/rand.
func NewLibrary(r *rand.Rand) *Library {
	if r == nil {
		var seed [32]byte
		// crypto/rand.Read never fails on Go 1.24+; it crashes instead.
		_, _ = crand.Read(seed[:])
		r = rand.New(rand.NewChaCha8(seed))
	}
	return &Library{decks: make(map[deckKey][]string), rnd: r}
}

// Load builds a library from the embedded decks plus, when dir is not
// empty, the deck files found in dir.
func Load(dir string) (*Library, error) {
	l := NewLibrary(nil)
	if err := l.LoadEmbedded(); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := l.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// LoadEmbedded adds the decks shipped with the binary.
func (l *Library) LoadEmbedded() error {
	files, err := assets.DeckFiles()
	if err != nil {
		return fmt.Errorf("words: list embedded decks: %w", err)
	}
	for _, f := range files {
		list, err := assets.ReadDeck(f.Path)
		if err != nil {
			return fmt.Errorf("words: read %s: %w", f.Path, err)
		}
		l.Add(f.DeckID, f.Language, list)
	}
	return nil
}

// LoadDir adds every <deck>.<language>.txt file in dir. A deck already
// present is replaced.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("words: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, lang, ok := assets.ParseDeckName(e.Name())
		if !ok {
			continue
		}
		list, err := readWordFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		l.Add(id, lang, list)
	}
	return nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("words: open %s: %w", path, err)
	}
	defer f.Close()
	return assets.ReadLines(f)
}

// Add stores a deck, normalising and deduplicating its words.
func (l *Library) Add(deckID, lang string, list []string) {
	key := deckKey{strings.ToLower(deckID), strings.ToLower(lang)}
	seen := make(map[string]struct{}, len(list))
	clean := make([]string, 0, len(list))
	for _, w := range list {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || strings.ContainsAny(w, " \t") {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		clean = append(clean, w)
	}
	l.mu.Lock()
	l.decks[key] = clean
	l.mu.Unlock()
}

// Decks lists loaded decks ordered by id, then language.
func (l *Library) Decks() []DeckInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]DeckInfo, 0, len(l.decks))
	for k, list := range l.decks {
		out = append(out, DeckInfo{ID: k.id, Language: k.lang, Size: len(list)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// FetchWords returns count distinct words from the deck in random order.
func (l *Library) FetchWords(ctx context.Context, count int, deckID, lang string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, &game.ValidationError{Field: "count", Reason: "must be positive"}
	}

	l.mu.RLock()
	list, ok := l.decks[deckKey{strings.ToLower(deckID), strings.ToLower(lang)}]
	l.mu.RUnlock()
	if !ok {
		return nil, &game.NotFoundError{Kind: "deck", ID: deckID + "/" + lang}
	}
	if len(list) < count {
		return nil, &game.InsufficientWordsError{DeckID: deckID, Language: lang, Requested: count, Available: len(list)}
	}

	// partial Fisher-Yates over a copy
	pool := append([]string(nil), list...)
	l.rndMu.Lock()
	for i := 0; i < count; i++ {
		j := i + l.rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	l.rndMu.Unlock()
	return pool[:count], nil
}
