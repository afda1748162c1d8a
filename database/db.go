package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Init(dbPath string) (*gorm.DB, error) {
	dbFile := sqlite.Open(dbPath)
	db, err := gorm.Open(dbFile, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.BoardSnapshot{}, &models.ReconcileFailure{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	zap.L().Info("Database initialised and migrated successfully", zap.String("path", dbPath))

	return db, nil
}

// SQLStore keeps snapshots and reconcile failures in a gorm database.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) SaveSnapshot(ctx context.Context, key string, b board.Board) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode board snapshot: %w", err)
	}
	snapshot := models.BoardSnapshot{BoardKey: key, Payload: payload}
	if result := s.db.WithContext(ctx).Save(&snapshot); result.Error != nil {
		return fmt.Errorf("failed to save board snapshot: %w", result.Error)
	}
	return nil
}

func (s *SQLStore) LoadSnapshot(ctx context.Context, key string) (board.Board, error) {
	var snapshot models.BoardSnapshot
	err := s.db.WithContext(ctx).First(&snapshot, "board_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return board.Board{}, ErrNoSnapshot
	}
	if err != nil {
		return board.Board{}, fmt.Errorf("failed to load board snapshot: %w", err)
	}
	return decodeSnapshot(snapshot.Payload)
}

func (s *SQLStore) RecordFailure(ctx context.Context, f models.ReconcileFailure) error {
	f.ID = 0
	if result := s.db.WithContext(ctx).Create(&f); result.Error != nil {
		return fmt.Errorf("failed to record reconcile failure: %w", result.Error)
	}
	return nil
}

func (s *SQLStore) Failures(ctx context.Context, limit int) ([]models.ReconcileFailure, error) {
	var out []models.ReconcileFailure
	q := s.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list reconcile failures: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
