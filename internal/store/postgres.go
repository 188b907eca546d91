package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/robalobadob/codebreaker/internal/game"
)

type gameRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Version   int    `gorm:"not null"`
	Status    string `gorm:"type:varchar(16);not null;index"`
	Doc       string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (gameRecord) TableName() string { return "games" }

type roundRecord struct {
	ID     string `gorm:"primaryKey;type:varchar(64)"`
	GameID string `gorm:"type:varchar(64);not null;index"`
}

func (roundRecord) TableName() string { return "game_rounds" }

type turnRecord struct {
	ID     string `gorm:"primaryKey;type:varchar(64)"`
	GameID string `gorm:"type:varchar(64);not null;index"`
}

func (turnRecord) TableName() string { return "game_turns" }

type postgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with gorm and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	s, err := openGorm(ctx, postgres.Open(dsn), automigrate)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openGorm(ctx context.Context, d gorm.Dialector, apply func(*gorm.DB) error) (*postgresStore, error) {
	db, err := gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := apply(db.WithContext(ctx)); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return &postgresStore{db: db}, nil
}

func automigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&gameRecord{}); err != nil {
		return fmt.Errorf("migrate games: %w", err)
	}
	if err := db.AutoMigrate(&roundRecord{}); err != nil {
		return fmt.Errorf("migrate game_rounds: %w", err)
	}
	if err := db.AutoMigrate(&turnRecord{}); err != nil {
		return fmt.Errorf("migrate game_turns: %w", err)
	}
	return nil
}

func (s *postgresStore) Save(ctx context.Context, g *game.Game, expected int) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expected == 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gameRecord{
				ID:      g.ID,
				Version: g.Version,
				Status:  string(g.Status),
				Doc:     string(doc),
			})
			if res.Error != nil {
				return fmt.Errorf("insert game %s: %w", g.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		} else {
			res := tx.Model(&gameRecord{}).
				Where("id = ? AND version = ?", g.ID, expected).
				Updates(map[string]any{
					"version":    g.Version,
					"status":     string(g.Status),
					"doc":        string(doc),
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("update game %s: %w", g.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				var n int64
				if err := tx.Model(&gameRecord{}).Where("id = ?", g.ID).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return ErrNotFound
				}
				return ErrConflict
			}
		}

		rounds, turns := childIDs(g)
		if len(rounds) > 0 {
			recs := make([]roundRecord, len(rounds))
			for i, id := range rounds {
				recs[i] = roundRecord{ID: id, GameID: g.ID}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&recs).Error; err != nil {
				return fmt.Errorf("index rounds: %w", err)
			}
		}
		if len(turns) > 0 {
			recs := make([]turnRecord, len(turns))
			for i, id := range turns {
				recs[i] = turnRecord{ID: id, GameID: g.ID}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&recs).Error; err != nil {
				return fmt.Errorf("index turns: %w", err)
			}
		}
		return nil
	})
}

func (s *postgresStore) Get(ctx context.Context, id string) (*game.Game, error) {
	var rec gameRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	var g game.Game
	if err := json.Unmarshal([]byte(rec.Doc), &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (s *postgresStore) GameIDByRound(ctx context.Context, roundID string) (string, error) {
	var rec roundRecord
	if err := s.db.WithContext(ctx).Where("id = ?", roundID).First(&rec).Error; err != nil {
		return "", notFound(err)
	}
	return rec.GameID, nil
}

func (s *postgresStore) GameIDByTurn(ctx context.Context, turnID string) (string, error) {
	var rec turnRecord
	if err := s.db.WithContext(ctx).Where("id = ?", turnID).First(&rec).Error; err != nil {
		return "", notFound(err)
	}
	return rec.GameID, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *postgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
