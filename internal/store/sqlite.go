// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations from sql/*.sql (idempotent, recorded in _migrations).
//   - Storing each game as a JSON document guarded by its version column.
//   - Indexing round and turn ids for reverse lookups.

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/internal/game"
)

//go:embed sql/*.sql
var migrations embed.FS

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at dsn and
// applies pending migrations.
func OpenSQLite(ctx context.Context, dsn string) (Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// openDB ensures the parent directory exists for file DSNs, then opens
// the database with busy timeout and WAL journaling.
func openDB(dsn string) (*sql.DB, error) {
	memory := dsn == ":memory:"
	if !memory {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if memory {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies the embedded sql/*.sql files in lexical order. Each file
// runs in its own transaction and is recorded in _migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

func (s *sqliteStore) Save(ctx context.Context, g *game.Game, expected int) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if expected == 0 {
		res, err := tx.ExecContext(ctx, `
            INSERT OR IGNORE INTO games (id, version, status, doc, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, g.Version, string(g.Status), string(doc), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert game %s: %w", g.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
	} else {
		res, err := tx.ExecContext(ctx, `
            UPDATE games SET version=?, status=?, doc=?, updated_at=?
            WHERE id=? AND version=?`,
			g.Version, string(g.Status), string(doc), now, g.ID, expected,
		)
		if err != nil {
			return fmt.Errorf("update game %s: %w", g.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id=?`, g.ID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return ErrConflict
		}
	}

	rounds, turns := childIDs(g)
	if err := insertIndex(ctx, tx, "game_rounds", g.ID, rounds); err != nil {
		return err
	}
	if err := insertIndex(ctx, tx, "game_turns", g.ID, turns); err != nil {
		return err
	}
	return tx.Commit()
}

func insertIndex(ctx context.Context, tx *sql.Tx, table, gameID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO `+table+` (id, game_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, gameID); err != nil {
			return fmt.Errorf("index %s %s: %w", strings.TrimPrefix(table, "game_"), id, err)
		}
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*game.Game, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM games WHERE id=?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	var g game.Game
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (s *sqliteStore) GameIDByRound(ctx context.Context, roundID string) (string, error) {
	return s.lookup(ctx, `SELECT game_id FROM game_rounds WHERE id=?`, roundID)
}

func (s *sqliteStore) GameIDByTurn(ctx context.Context, turnID string) (string, error) {
	return s.lookup(ctx, `SELECT game_id FROM game_turns WHERE id=?`, turnID)
}

func (s *sqliteStore) lookup(ctx context.Context, query, id string) (string, error) {
	var gameID string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return gameID, err
}

func (s *sqliteStore) Close() error { return s.db.Close() }
