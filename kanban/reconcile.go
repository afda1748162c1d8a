package kanban

import (
	"context"
	"time"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskUpdate is one remote call of a reconcile run. FromColumnID is where
// the remote files the task before the call; ColumnID is its new owner.
type TaskUpdate struct {
	FromColumnID string
	ColumnID     string
	TaskID       string
	Content      string
}

// Plan lists the updates that bring the remote in line with a local move.
// The remote has no position field, so order is carried by issuing one
// update per task in display order.
type Plan struct {
	RunID   string
	Updates []TaskUpdate
}

// NewPlan covers every task of the given columns of next, in display order.
// Columns are visited in the order given, duplicates once. A column whose
// task sequence is the same in prev and next is skipped.
func NewPlan(prev, next board.Board, columnIDs ...string) Plan {
	plan := Plan{RunID: uuid.NewString()}
	seen := make(map[string]bool, len(columnIDs))
	for _, id := range columnIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		col, ok := next.Column(id)
		if !ok {
			continue
		}
		if before, ok := prev.Column(id); ok && sameTasks(before.Tasks, col.Tasks) {
			continue
		}
		for _, t := range col.Tasks {
			from := id
			if owner, _, ok := prev.Locate(t.ID); ok {
				from = owner
			}
			plan.Updates = append(plan.Updates, TaskUpdate{
				FromColumnID: from,
				ColumnID:     id,
				TaskID:       t.ID,
				Content:      t.Content,
			})
		}
	}
	return plan
}

func sameTasks(a, b []board.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type ReconcileResult struct {
	RunID  string
	Issued int
	Failed int
}

// Reconcile issues the plan's updates one after the other. A failed update
// is logged and recorded and the run carries on; the local board is never
// rolled back.
func (s *Synchronizer) Reconcile(ctx context.Context, plan Plan) ReconcileResult {
	logger := zap.L().With(zap.String("runID", plan.RunID))
	result := ReconcileResult{RunID: plan.RunID}

	for _, u := range plan.Updates {
		err := s.remote.UpdateTask(ctx, u.FromColumnID, u.TaskID, models.TaskUpdate{
			ColumnID:    u.ColumnID,
			Description: u.Content,
		})
		s.metrics.ObserveReconcile(err)
		result.Issued++
		if err != nil {
			result.Failed++
			logger.Error("Failed to reconcile task",
				zap.String("taskID", u.TaskID),
				zap.String("fromColumnID", u.FromColumnID),
				zap.String("columnID", u.ColumnID),
				zap.Error(err),
			)
			s.recordFailure(plan.RunID, u, err)
		}
	}

	if result.Failed > 0 {
		logger.Warn("Board reconciled with failures; reload to resync",
			zap.Int("issued", result.Issued), zap.Int("failed", result.Failed))
	} else {
		logger.Debug("Board reconciled", zap.Int("issued", result.Issued))
	}
	return result
}

func (s *Synchronizer) recordFailure(runID string, u TaskUpdate, err error) {
	f := models.ReconcileFailure{
		RunID:        runID,
		FromColumnID: u.FromColumnID,
		ColumnID:     u.ColumnID,
		TaskID:       u.TaskID,
		Message:      Message(err),
		CreatedAt:    time.Now().UTC(),
	}

	s.failMu.Lock()
	s.failures = append(s.failures, f)
	if len(s.failures) > s.maxFailures {
		s.failures = append([]models.ReconcileFailure(nil), s.failures[len(s.failures)-s.maxFailures:]...)
	}
	s.failMu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.RecordFailure(context.Background(), f); err != nil {
		zap.L().Warn("Failed to record reconcile failure", zap.Error(err))
	}
}
