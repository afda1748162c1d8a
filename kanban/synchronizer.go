// Package kanban keeps a local kanban board in step with the remote kanban API.
//
// Task moves are applied to the local board first and reconciled with the
// remote afterwards, one update call at a time, on a background worker.
// Creating, renaming and deleting go the other way round: queued reconciles
// are drained first, then the remote call has to succeed before the local
// board changes.
package kanban

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/metrics"
	"github.com/chxlky/kanban-sync/internal/models"
	"go.uber.org/zap"
)

// Remote is the subset of the kanban API the synchronizer needs.
type Remote interface {
	ListColumns(ctx context.Context) ([]models.KanbanColumn, error)
	ListTasks(ctx context.Context, columnID string) ([]models.KanbanTask, error)
	CreateColumn(ctx context.Context, name string) (string, error)
	RenameColumn(ctx context.Context, columnID, name string) error
	DeleteColumn(ctx context.Context, columnID string) error
	CreateTask(ctx context.Context, columnID, description string) (string, error)
	UpdateTask(ctx context.Context, columnID, taskID string, update models.TaskUpdate) error
	DeleteTask(ctx context.Context, columnID, taskID string) error
}

// SnapshotStore receives every known-good board and every failed reconcile update.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, key string, b board.Board) error
	RecordFailure(ctx context.Context, f models.ReconcileFailure) error
}

type Options struct {
	Store    SnapshotStore
	StoreKey string
	Metrics  *metrics.Metrics
	// DefaultColumns are created by Seed on an empty board.
	DefaultColumns []string
	// MaxFailures bounds the in-memory failure log.
	MaxFailures int
}

type job struct {
	plan    *Plan
	barrier chan struct{}
}

type Synchronizer struct {
	remote      Remote
	store       SnapshotStore
	storeKey    string
	metrics     *metrics.Metrics
	defaults    []string
	maxFailures int

	mu     sync.Mutex
	state  board.Board
	closed bool

	// ops serializes Load and the remote-first mutations.
	ops       sync.Mutex
	persistMu sync.Mutex

	queueMu   sync.Mutex
	queue     []job
	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	failMu   sync.Mutex
	failures []models.ReconcileFailure
}

// New starts a Synchronizer with an empty board. Call Load to fetch the
// remote board and Close to stop the reconcile worker.
func New(remote Remote, opts Options) *Synchronizer {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 100
	}
	s := &Synchronizer{
		remote:      remote,
		store:       opts.Store,
		storeKey:    opts.StoreKey,
		metrics:     opts.Metrics,
		defaults:    opts.DefaultColumns,
		maxFailures: opts.MaxFailures,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go s.run()
	return s
}

// Board returns the current board. The value never changes afterwards.
func (s *Synchronizer) Board() board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load replaces the local board with the remote one. On failure the local
// board is left empty rather than partially filled.
func (s *Synchronizer) Load(ctx context.Context) (board.Board, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	b, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = board.Board{}
		s.mu.Unlock()
		zap.L().Error("Failed to load board", zap.Error(err))
		return board.Board{}, err
	}

	s.mu.Lock()
	s.state = b
	s.mu.Unlock()
	s.persist()

	zap.L().Info("Board loaded", zap.Int("columns", b.Len()), zap.Int("tasks", b.TaskCount()))
	return b, nil
}

func (s *Synchronizer) fetch(ctx context.Context) (board.Board, error) {
	remoteColumns, err := s.remote.ListColumns(ctx)
	if err != nil {
		return board.Board{}, fmt.Errorf("failed to list columns: %w", err)
	}

	columns := make([]board.Column, 0, len(remoteColumns))
	for _, rc := range remoteColumns {
		remoteTasks, err := s.remote.ListTasks(ctx, rc.ID.String())
		if err != nil {
			return board.Board{}, fmt.Errorf("failed to list tasks of column %s: %w", rc.ID, err)
		}
		col := board.Column{ID: rc.ID.String(), Title: rc.Name, Tasks: make([]board.Task, 0, len(remoteTasks))}
		for _, rt := range remoteTasks {
			col.Tasks = append(col.Tasks, board.Task{ID: rt.ID.String(), Content: rt.Description})
		}
		columns = append(columns, col)
	}

	b, err := board.New(columns...)
	if err != nil {
		return board.Board{}, fmt.Errorf("remote board is inconsistent: %w", err)
	}
	return b, nil
}

// Seed creates the default columns when the board has none.
func (s *Synchronizer) Seed(ctx context.Context) ([]board.Column, error) {
	if s.Board().Len() > 0 {
		return nil, nil
	}
	var created []board.Column
	for _, title := range s.defaults {
		c, err := s.AddColumn(ctx, title)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	if len(created) > 0 {
		zap.L().Info("Seeded empty board with default columns", zap.Int("columns", len(created)))
	}
	return created, nil
}

// Reorder moves a task locally and queues the reconcile of every task in
// the affected columns. The returned board already reflects the move.
func (s *Synchronizer) Reorder(srcColumnID string, srcIndex int, dstColumnID string, dstIndex int) (board.Board, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return board.Board{}, ErrClosed
	}
	prev := s.state
	next, err := prev.Move(srcColumnID, srcIndex, dstColumnID, dstIndex)
	if err != nil {
		s.mu.Unlock()
		return board.Board{}, err
	}
	s.state = next
	plan := NewPlan(prev, next, srcColumnID, dstColumnID)
	// queued while holding mu so plans run in the order moves were applied
	if len(plan.Updates) > 0 {
		s.enqueue(job{plan: &plan})
	}
	s.mu.Unlock()

	s.metrics.ObserveMove(srcColumnID != dstColumnID)
	zap.L().Debug("Task moved",
		zap.String("runID", plan.RunID),
		zap.String("from", srcColumnID),
		zap.Int("fromIndex", srcIndex),
		zap.String("to", dstColumnID),
		zap.Int("toIndex", dstIndex),
		zap.Int("updates", len(plan.Updates)),
	)

	s.persist()
	return next, nil
}

func (s *Synchronizer) AddColumn(ctx context.Context, title string) (board.Column, error) {
	if isBlank(title) {
		return board.Column{}, validationErrorf("column title must not be empty")
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.settle(ctx); err != nil {
		return board.Column{}, err
	}

	id, err := s.remote.CreateColumn(ctx, title)
	if err != nil {
		return board.Column{}, fmt.Errorf("failed to create column: %w", err)
	}

	col := board.Column{ID: id, Title: title, Tasks: []board.Task{}}
	if _, err := s.apply(func(b board.Board) (board.Board, error) {
		return b.AppendColumn(col)
	}); err != nil {
		return board.Column{}, err
	}

	zap.L().Info("Column added", zap.String("columnID", id))
	return col, nil
}

func (s *Synchronizer) AddTask(ctx context.Context, columnID, content string) (board.Task, error) {
	if isBlank(content) {
		return board.Task{}, validationErrorf("task content must not be empty")
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.settle(ctx); err != nil {
		return board.Task{}, err
	}
	if _, ok := s.Board().Column(columnID); !ok {
		return board.Task{}, fmt.Errorf("%w: %s", board.ErrColumnNotFound, columnID)
	}

	id, err := s.remote.CreateTask(ctx, columnID, content)
	if err != nil {
		return board.Task{}, fmt.Errorf("failed to create task in column %s: %w", columnID, err)
	}

	task := board.Task{ID: id, Content: content}
	if _, err := s.apply(func(b board.Board) (board.Board, error) {
		return b.AppendTask(columnID, task)
	}); err != nil {
		return board.Task{}, err
	}

	zap.L().Info("Task added", zap.String("columnID", columnID), zap.String("taskID", id))
	return task, nil
}

func (s *Synchronizer) RenameColumn(ctx context.Context, columnID, title string) (board.Column, error) {
	if isBlank(title) {
		return board.Column{}, validationErrorf("column title must not be empty")
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.settle(ctx); err != nil {
		return board.Column{}, err
	}
	if _, ok := s.Board().Column(columnID); !ok {
		return board.Column{}, fmt.Errorf("%w: %s", board.ErrColumnNotFound, columnID)
	}

	if err := s.remote.RenameColumn(ctx, columnID, title); err != nil {
		return board.Column{}, fmt.Errorf("failed to rename column %s: %w", columnID, err)
	}

	next, err := s.apply(func(b board.Board) (board.Board, error) {
		return b.RenameColumn(columnID, title)
	})
	if err != nil {
		return board.Column{}, err
	}

	col, _ := next.Column(columnID)
	return col, nil
}

func (s *Synchronizer) DeleteTask(ctx context.Context, columnID, taskID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.settle(ctx); err != nil {
		return err
	}

	col, ok := s.Board().Column(columnID)
	if !ok {
		return fmt.Errorf("%w: %s", board.ErrColumnNotFound, columnID)
	}
	if !hasTask(col, taskID) {
		return fmt.Errorf("%w: %s in column %s", board.ErrTaskNotFound, taskID, columnID)
	}

	if err := s.remote.DeleteTask(ctx, columnID, taskID); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}

	_, err := s.apply(func(b board.Board) (board.Board, error) {
		owner, _, ok := b.Locate(taskID)
		if !ok {
			return b, nil
		}
		return b.RemoveTask(owner, taskID)
	})
	if err == nil {
		zap.L().Info("Task deleted", zap.String("columnID", columnID), zap.String("taskID", taskID))
	}
	return err
}

// DeleteColumn deletes the column's tasks one by one, then the column. The
// first failure stops the sequence and the local board keeps the column.
func (s *Synchronizer) DeleteColumn(ctx context.Context, columnID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.settle(ctx); err != nil {
		return err
	}

	col, ok := s.Board().Column(columnID)
	if !ok {
		return fmt.Errorf("%w: %s", board.ErrColumnNotFound, columnID)
	}

	for _, t := range col.Tasks {
		if err := s.remote.DeleteTask(ctx, columnID, t.ID); err != nil {
			return fmt.Errorf("failed to delete task %s of column %s: %w", t.ID, columnID, err)
		}
	}
	if err := s.remote.DeleteColumn(ctx, columnID); err != nil {
		return fmt.Errorf("failed to delete column %s: %w", columnID, err)
	}

	_, err := s.apply(func(b board.Board) (board.Board, error) {
		if _, ok := b.Column(columnID); !ok {
			return b, nil
		}
		return b.RemoveColumn(columnID)
	})
	if err == nil {
		zap.L().Info("Column deleted", zap.String("columnID", columnID), zap.Int("tasks", len(col.Tasks)))
	}
	return err
}

// Failures returns the reconcile failures seen by this process, newest first.
func (s *Synchronizer) Failures() []models.ReconcileFailure {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	out := make([]models.ReconcileFailure, 0, len(s.failures))
	for i := len(s.failures) - 1; i >= 0; i-- {
		out = append(out, s.failures[i])
	}
	return out
}

// Flush waits until every reconcile queued so far has finished.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.wait(ctx)
	}
	barrier := make(chan struct{})
	s.enqueue(job{barrier: barrier})
	s.mu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting moves and waits for queued reconciles to drain.
// Requests already in flight are not cancelled when ctx expires.
func (s *Synchronizer) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stop)
	})
	return s.wait(ctx)
}

// settle lets queued reconciles reach the remote before a remote-first
// call, which would otherwise address tasks where the remote does not have
// them yet. Callers hold ops.
func (s *Synchronizer) settle(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return fmt.Errorf("failed to wait for pending reconciles: %w", err)
	}
	return nil
}

func (s *Synchronizer) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) apply(fn func(board.Board) (board.Board, error)) (board.Board, error) {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return board.Board{}, err
	}
	s.state = next
	s.mu.Unlock()

	s.persist()
	return next, nil
}

// persist writes the current board, not the one that triggered the call, so
// racing writers can only ever leave the latest board behind.
func (s *Synchronizer) persist() {
	if s.store == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.store.SaveSnapshot(context.Background(), s.storeKey, s.Board()); err != nil {
		zap.L().Warn("Failed to save board snapshot", zap.Error(err))
	}
}

func (s *Synchronizer) enqueue(j job) {
	s.queueMu.Lock()
	s.queue = append(s.queue, j)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) dequeue() (job, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return job{}, false
	}
	j := s.queue[0]
	s.queue[0] = job{}
	s.queue = s.queue[1:]
	return j, true
}

func (s *Synchronizer) run() {
	defer close(s.done)
	for {
		s.drain()
		select {
		case <-s.wake:
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *Synchronizer) drain() {
	for {
		j, ok := s.dequeue()
		if !ok {
			return
		}
		if j.plan != nil {
			s.Reconcile(context.Background(), *j.plan)
		}
		if j.barrier != nil {
			close(j.barrier)
		}
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func hasTask(c board.Column, taskID string) bool {
	for _, t := range c.Tasks {
		if t.ID == taskID {
			return true
		}
	}
	return false
}
