// Package database persists the last known-good board and the log of failed
// reconcile updates so drift can be inspected after the fact.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
)

var ErrNoSnapshot = errors.New("no board snapshot stored")

type Store interface {
	SaveSnapshot(ctx context.Context, key string, b board.Board) error
	LoadSnapshot(ctx context.Context, key string) (board.Board, error)
	RecordFailure(ctx context.Context, f models.ReconcileFailure) error
	Failures(ctx context.Context, limit int) ([]models.ReconcileFailure, error)
	Close() error
}

// NopStore stores nothing.
type NopStore struct{}

func (NopStore) SaveSnapshot(context.Context, string, board.Board) error { return nil }

func (NopStore) LoadSnapshot(context.Context, string) (board.Board, error) {
	return board.Board{}, ErrNoSnapshot
}

func (NopStore) RecordFailure(context.Context, models.ReconcileFailure) error { return nil }

func (NopStore) Failures(context.Context, int) ([]models.ReconcileFailure, error) { return nil, nil }

func (NopStore) Close() error { return nil }

func decodeSnapshot(payload []byte) (board.Board, error) {
	var b board.Board
	if err := json.Unmarshal(payload, &b); err != nil {
		return board.Board{}, fmt.Errorf("failed to decode board snapshot: %w", err)
	}
	return b, nil
}
