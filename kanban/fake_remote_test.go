package kanban

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/chxlky/kanban-sync/integrations"
	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
)

// fakeRemote is an in-memory kanban API. Like the real one it has no
// position field: an updated task goes to the end of its new column.
type fakeRemote struct {
	mu      sync.Mutex
	order   []string
	names   map[string]string
	tasks   map[string][]models.KanbanTask
	calls   []string
	patches []models.TaskUpdate
	fail    map[string]error
	nextID  int

	updateGate chan struct{}
	renameGate chan struct{}
	// deleteEntered is signalled once DeleteColumn has been called, which
	// then waits for deleteGate.
	deleteEntered chan struct{}
	deleteGate    chan struct{}
}

func newFakeRemote(columns ...board.Column) *fakeRemote {
	r := &fakeRemote{
		names: make(map[string]string),
		tasks: make(map[string][]models.KanbanTask),
		fail:  make(map[string]error),
	}
	for _, c := range columns {
		r.order = append(r.order, c.ID)
		r.names[c.ID] = c.Title
		for _, t := range c.Tasks {
			r.tasks[c.ID] = append(r.tasks[c.ID], models.KanbanTask{ID: models.RemoteID(t.ID), Description: t.Content})
		}
	}
	return r
}

func (r *fakeRemote) failOn(call string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[call] = err
}

func (r *fakeRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRemote) Patches() []models.TaskUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TaskUpdate(nil), r.patches...)
}

// record logs the call and returns the injected failure for it, if any.
func (r *fakeRemote) record(call string) error {
	r.calls = append(r.calls, call)
	return r.fail[call]
}

func notFound(op, what string) error {
	return &integrations.RemoteError{Op: op, Status: http.StatusNotFound, Message: what + " not found"}
}

func (r *fakeRemote) ListColumns(ctx context.Context) ([]models.KanbanColumn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("GET /kanban/"); err != nil {
		return nil, err
	}
	out := make([]models.KanbanColumn, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, models.KanbanColumn{ID: models.RemoteID(id), Name: r.names[id]})
	}
	return out, nil
}

func (r *fakeRemote) ListTasks(ctx context.Context, columnID string) ([]models.KanbanTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("GET /kanban/%s/tasks/", columnID)); err != nil {
		return nil, err
	}
	if _, ok := r.names[columnID]; !ok {
		return nil, notFound("list tasks", "Column")
	}
	return append([]models.KanbanTask(nil), r.tasks[columnID]...), nil
}

func (r *fakeRemote) CreateColumn(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("POST /kanban/"); err != nil {
		return "", err
	}
	r.nextID++
	id := "c" + strconv.Itoa(r.nextID)
	r.order = append(r.order, id)
	r.names[id] = name
	return id, nil
}

func (r *fakeRemote) RenameColumn(ctx context.Context, columnID, name string) error {
	if r.renameGate != nil {
		<-r.renameGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("PATCH /kanban/%s/", columnID)); err != nil {
		return err
	}
	if _, ok := r.names[columnID]; !ok {
		return notFound("rename column", "Column")
	}
	r.names[columnID] = name
	return nil
}

func (r *fakeRemote) DeleteColumn(ctx context.Context, columnID string) error {
	if r.deleteGate != nil {
		r.deleteEntered <- struct{}{}
		<-r.deleteGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("DELETE /kanban/%s/", columnID)); err != nil {
		return err
	}
	if _, ok := r.names[columnID]; !ok {
		return notFound("delete column", "Column")
	}
	delete(r.names, columnID)
	delete(r.tasks, columnID)
	for i, id := range r.order {
		if id == columnID {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRemote) CreateTask(ctx context.Context, columnID, description string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("POST /kanban/%s/tasks/", columnID)); err != nil {
		return "", err
	}
	if _, ok := r.names[columnID]; !ok {
		return "", notFound("create task", "Column")
	}
	r.nextID++
	id := "t" + strconv.Itoa(r.nextID)
	r.tasks[columnID] = append(r.tasks[columnID], models.KanbanTask{ID: models.RemoteID(id), Description: description})
	return id, nil
}

func (r *fakeRemote) UpdateTask(ctx context.Context, columnID, taskID string, update models.TaskUpdate) error {
	if r.updateGate != nil {
		<-r.updateGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("PATCH /kanban/%s/tasks/%s/", columnID, taskID)); err != nil {
		return err
	}
	r.patches = append(r.patches, update)

	if _, ok := r.names[update.ColumnID]; !ok {
		return notFound("update task", "Column")
	}
	tasks := r.tasks[columnID]
	for i, t := range tasks {
		if t.ID.String() != taskID {
			continue
		}
		r.tasks[columnID] = append(tasks[:i:i], tasks[i+1:]...)
		r.tasks[update.ColumnID] = append(r.tasks[update.ColumnID], models.KanbanTask{ID: t.ID, Description: update.Description})
		return nil
	}
	return notFound("update task", "Task")
}

func (r *fakeRemote) DeleteTask(ctx context.Context, columnID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(fmt.Sprintf("DELETE /kanban/%s/tasks/%s/", columnID, taskID)); err != nil {
		return err
	}
	tasks := r.tasks[columnID]
	for i, t := range tasks {
		if t.ID.String() == taskID {
			r.tasks[columnID] = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return notFound("delete task", "Task")
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]board.Board
	failures  []models.ReconcileFailure
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]board.Board)}
}

func (s *fakeStore) SaveSnapshot(ctx context.Context, key string, b board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = b
	return nil
}

func (s *fakeStore) RecordFailure(ctx context.Context, f models.ReconcileFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
	return nil
}

func (s *fakeStore) snapshot(key string) (board.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.snapshots[key]
	return b, ok
}

func (s *fakeStore) recorded() []models.ReconcileFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReconcileFailure(nil), s.failures...)
}
