package assets

import (
	"bufio"
	"embed"
	"io"
	"io/fs"
	"strings"
)

// Deck files are named <deck>.<language>.txt, one word per line.
//
//go:embed decks/*.txt
var FS embed.FS

// DeckFile is one embedded word list.
type DeckFile struct {
	DeckID   string
	Language string
	Path     string
}

// DeckFiles lists the embedded decks.
func DeckFiles() ([]DeckFile, error) {
	paths, err := fs.Glob(FS, "decks/*.txt")
	if err != nil {
		return nil, err
	}
	var out []DeckFile
	for _, p := range paths {
		id, lang, ok := ParseDeckName(strings.TrimPrefix(p, "decks/"))
		if !ok {
			continue
		}
		out = append(out, DeckFile{DeckID: id, Language: lang, Path: p})
	}
	return out, nil
}

// ParseDeckName splits "classic.en.txt" into ("classic", "en").
func ParseDeckName(name string) (deckID, lang string, ok bool) {
	parts := strings.Split(strings.TrimSuffix(name, ".txt"), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || !strings.HasSuffix(name, ".txt") {
		return "", "", false
	}
	return strings.ToLower(parts[0]), strings.ToLower(parts[1]), true
}

// ReadDeck returns the words of an embedded deck file.
func ReadDeck(path string) ([]string, error) {
	f, err := FS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadLines reads one word per line, skipping blanks and # comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}
