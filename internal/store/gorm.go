package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// GameRecord is the checkpoint row. State holds the JSON encoded engine.State.
type GameRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Version   int    `gorm:"not null"`
	Phase     string `gorm:"size:16;index"`
	State     []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the checkpoint table.
func OpenPostgres(dsn string, log *zap.Logger) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&GameRecord{}); err != nil {
		return nil, fmt.Errorf("migrate game records: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Save(ctx context.Context, version int, s engine.State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", s.ID, err)
	}
	rec := GameRecord{ID: s.ID, Version: version, Phase: string(s.Phase), State: raw}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "phase", "state", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "game_records.version < excluded.version"},
		}},
	}).Create(&rec).Error
}

func (g *Gorm) Load(ctx context.Context, id string) (engine.State, int, bool, error) {
	var rec GameRecord
	err := g.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.State{}, 0, false, nil
	}
	if err != nil {
		return engine.State{}, 0, false, fmt.Errorf("load game %s: %w", id, err)
	}
	var s engine.State
	if err := json.Unmarshal(rec.State, &s); err != nil {
		return engine.State{}, 0, false, fmt.Errorf("decode game %s: %w", id, err)
	}
	return s, rec.Version, true, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
