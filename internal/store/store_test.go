package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/robalobadob/codebreaker/internal/game"
)

func sampleGame(id string) *game.Game {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &game.Game{
		ID:       id,
		Status:   game.GameInProgress,
		Settings: game.DefaultSettings(),
		Teams:    []game.Team{{ID: id + "-red", Name: "Red"}, {ID: id + "-blue", Name: "Blue", Order: 1}},
		Rounds: []game.Round{{
			ID:     id + "-r1",
			Seq:    1,
			Status: game.RoundInProgress,
			Cards:  []game.Card{{ID: id + "-c1", Word: "apple", Category: game.CategoryTrap}},
			Turns:  []game.Turn{{ID: id + "-t1", RoundID: id + "-r1", TeamID: id + "-red", Seq: 1, Phase: game.PhaseOpen, CreatedAt: now}},
		}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runStoreSuite checks the behaviour every backend must share.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	g := sampleGame("g1")
	if err := s.Save(ctx, g, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Save(ctx, g, 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("second create err = %v, want ErrConflict", err)
	}

	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Version != 1 || len(got.Rounds) != 1 || got.Rounds[0].Cards[0].Word != "apple" {
		t.Fatalf("round trip lost data: %+v", got)
	}

	// Callers own their copies.
	got.Rounds[0].Cards[0].Revealed = true
	again, _ := s.Get(ctx, "g1")
	if again.Rounds[0].Cards[0].Revealed {
		t.Fatal("Get returned shared state")
	}

	next := got.Clone()
	next.Version = 2
	next.Rounds[0].Turns = append(next.Rounds[0].Turns, game.Turn{ID: "g1-t2", RoundID: "g1-r1", Seq: 2})
	if err := s.Save(ctx, next, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	stale := got.Clone()
	stale.Version = 2
	if err := s.Save(ctx, stale, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}
	ghost := sampleGame("ghost")
	ghost.Version = 5
	if err := s.Save(ctx, ghost, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing game err = %v, want ErrNotFound", err)
	}

	if id, err := s.GameIDByRound(ctx, "g1-r1"); err != nil || id != "g1" {
		t.Fatalf("GameIDByRound = %q, %v", id, err)
	}
	if id, err := s.GameIDByTurn(ctx, "g1-t2"); err != nil || id != "g1" {
		t.Fatalf("GameIDByTurn = %q, %v", id, err)
	}
	if _, err := s.GameIDByTurn(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GameIDByTurn(nope) err = %v", err)
	}

	final, _ := s.Get(ctx, "g1")
	if final.Version != 2 || len(final.Rounds[0].Turns) != 2 {
		t.Fatalf("final = version %d, %d turns", final.Version, len(final.Rounds[0].Turns))
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "codebreaker.db")
	s, err := OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	runStoreSuite(t, s)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "codebreaker.db")
	for i := 0; i < 2; i++ {
		if err := Migrate(context.Background(), DriverSQLite, dsn); err != nil {
			t.Fatalf("migrate #%d: %v", i+1, err)
		}
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CODEBREAKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CODEBREAKER_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()
	runStoreSuite(t, s)
}

func TestOpenGorm_ClosesPoolWhenMigrationFails(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer conn.Close()

	failing := func(*gorm.DB) error { return errors.New("no schema for you") }
	if _, err := openGorm(context.Background(), postgres.New(postgres.Config{Conn: conn}), failing); err == nil {
		t.Fatal("expected migration to fail")
	}
	if err := conn.Ping(); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("pool still open: ping = %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", ""); err == nil {
		t.Fatal("expected an error")
	}
}
