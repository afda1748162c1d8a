package models

import "time"

// BoardSnapshot is the last known-good board for one remote, stored as JSON.
type BoardSnapshot struct {
	BoardKey  string `gorm:"primaryKey"`
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconcileFailure records a task update that the remote rejected or never
// received while reconciling a move.
type ReconcileFailure struct {
	ID           uint      `gorm:"primaryKey" json:"id,omitempty"`
	RunID        string    `gorm:"index" json:"run_id"`
	FromColumnID string    `json:"from_column_id"`
	ColumnID     string    `json:"column_id"`
	TaskID       string    `json:"task_id"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}
