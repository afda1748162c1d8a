package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chxlky/kanban-sync/integrations"
	"github.com/chxlky/kanban-sync/internal/metrics"
	"github.com/chxlky/kanban-sync/internal/models"
	"github.com/chxlky/kanban-sync/kanban"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRemote serves a fixed todo:[A,B] done:[] board; mutations succeed
// unless the matching function field says otherwise.
type stubRemote struct {
	mu    sync.Mutex
	calls int

	createTaskFn   func(columnID, description string) (string, error)
	deleteColumnFn func(columnID string) error
	updateTaskFn   func(columnID, taskID string, update models.TaskUpdate) error
}

func (s *stubRemote) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubRemote) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubRemote) ListColumns(ctx context.Context) ([]models.KanbanColumn, error) {
	s.count()
	return []models.KanbanColumn{{ID: "todo", Name: "To Do"}, {ID: "done", Name: "Done"}}, nil
}

func (s *stubRemote) ListTasks(ctx context.Context, columnID string) ([]models.KanbanTask, error) {
	s.count()
	if columnID == "todo" {
		return []models.KanbanTask{{ID: "A", Description: "write"}, {ID: "B", Description: "test"}}, nil
	}
	return nil, nil
}

func (s *stubRemote) CreateColumn(ctx context.Context, name string) (string, error) {
	s.count()
	return "new", nil
}

func (s *stubRemote) RenameColumn(ctx context.Context, columnID, name string) error {
	s.count()
	return nil
}

func (s *stubRemote) DeleteColumn(ctx context.Context, columnID string) error {
	s.count()
	if s.deleteColumnFn != nil {
		return s.deleteColumnFn(columnID)
	}
	return nil
}

func (s *stubRemote) CreateTask(ctx context.Context, columnID, description string) (string, error) {
	s.count()
	if s.createTaskFn != nil {
		return s.createTaskFn(columnID, description)
	}
	return "T1", nil
}

func (s *stubRemote) UpdateTask(ctx context.Context, columnID, taskID string, update models.TaskUpdate) error {
	s.count()
	if s.updateTaskFn != nil {
		return s.updateTaskFn(columnID, taskID, update)
	}
	return nil
}

func (s *stubRemote) DeleteTask(ctx context.Context, columnID, taskID string) error {
	s.count()
	return nil
}

type testServer struct {
	router *gin.Engine
	sync   *kanban.Synchronizer
	remote *stubRemote
}

func newTestServer(t *testing.T, remote *stubRemote) *testServer {
	t.Helper()
	registry := prometheus.NewRegistry()
	s := kanban.New(remote, kanban.Options{Metrics: metrics.New(registry)})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(&Handler{Sync: s}, zap.NewNop(), registry),
		sync:   s,
		remote: remote,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

type boardBody struct {
	Columns []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Tasks []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"tasks"`
	} `json:"columns"`
}

func decodeBoard(t *testing.T, w *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	var body boardBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	out := make(map[string][]string)
	for _, c := range body.Columns {
		ids := []string{}
		for _, task := range c.Tasks {
			ids = append(ids, task.ID)
		}
		out[c.ID] = ids
	}
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndBoard(t *testing.T) {
	ts := newTestServer(t, &stubRemote{})

	w := ts.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/board", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string][]string{"todo": {"A", "B"}, "done": {}}, decodeBoard(t, w))

	w = ts.do(t, http.MethodPost, "/api/board/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string][]string{"todo": {"A", "B"}, "done": {}}, decodeBoard(t, w))
}

func TestMoveTask(t *testing.T) {
	ts := newTestServer(t, &stubRemote{})

	w := ts.do(t, http.MethodPost, "/api/board/moves",
		`{"source_column_id":"todo","source_index":0,"dest_column_id":"done","dest_index":0}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, map[string][]string{"todo": {"B"}, "done": {"A"}}, decodeBoard(t, w))

	w = ts.do(t, http.MethodGet, "/api/board", "")
	assert.Equal(t, map[string][]string{"todo": {"B"}, "done": {"A"}}, decodeBoard(t, w))
}

func TestMoveTaskRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, &stubRemote{})

	cases := []struct {
		name   string
		body   string
		status int
		kind   kanban.Kind
	}{
		{name: "missing index", body: `{"source_column_id":"todo","dest_column_id":"done","dest_index":0}`,
			status: http.StatusBadRequest, kind: kanban.KindInvalid},
		{name: "index out of range", body: `{"source_column_id":"todo","source_index":7,"dest_column_id":"done","dest_index":0}`,
			status: http.StatusBadRequest, kind: kanban.KindInvalid},
		{name: "unknown column", body: `{"source_column_id":"todo","source_index":0,"dest_column_id":"later","dest_index":0}`,
			status: http.StatusNotFound, kind: kanban.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/board/moves", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, string(tc.kind), decodeError(t, w).Error)
		})
	}
}

func TestAddTaskBlankIsRejectedLocally(t *testing.T) {
	remote := &stubRemote{}
	ts := newTestServer(t, remote)
	before := remote.Calls()

	w := ts.do(t, http.MethodPost, "/api/columns/todo/tasks", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(kanban.KindValidation), decodeError(t, w).Error)
	assert.Equal(t, before, remote.Calls())
}

func TestAddTaskRemoteRejectionIsSurfacedVerbatim(t *testing.T) {
	ts := newTestServer(t, &stubRemote{
		createTaskFn: func(columnID, description string) (string, error) {
			return "", &integrations.RemoteError{Op: "create task", Status: http.StatusBadRequest, Message: "Описание слишком длинное"}
		},
	})

	w := ts.do(t, http.MethodPost, "/api/columns/todo/tasks", `{"content":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(kanban.KindRemote), body.Error)
	assert.Equal(t, "Описание слишком длинное", body.Message)
}

func TestColumnLifecycle(t *testing.T) {
	ts := newTestServer(t, &stubRemote{})

	w := ts.do(t, http.MethodPost, "/api/columns", `{"title":"Backlog"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/columns/new", `{"title":"Someday"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var col struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &col))
	assert.Equal(t, "Someday", col.Title)

	w = ts.do(t, http.MethodPost, "/api/columns/new/tasks", `{"content":"learn go"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/columns/new/tasks/T1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/columns/todo", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, []string{"done", "new"}, ts.sync.Board().ColumnIDs())

	w = ts.do(t, http.MethodDelete, "/api/columns/todo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteColumnFetchFailure(t *testing.T) {
	ts := newTestServer(t, &stubRemote{
		deleteColumnFn: func(columnID string) error {
			return &integrations.FetchError{Op: "delete column", Err: errors.New("connection refused")}
		},
	})

	w := ts.do(t, http.MethodDelete, "/api/columns/done", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(kanban.KindFetch), decodeError(t, w).Error)
	assert.Equal(t, []string{"todo", "done"}, ts.sync.Board().ColumnIDs())
}

func TestFailuresAndMetrics(t *testing.T) {
	ts := newTestServer(t, &stubRemote{
		updateTaskFn: func(columnID, taskID string, update models.TaskUpdate) error {
			if taskID == "A" {
				return &integrations.RemoteError{Op: "update task", Status: http.StatusInternalServerError, Message: "boom"}
			}
			return nil
		},
	})

	w := ts.do(t, http.MethodPost, "/api/board/moves",
		`{"source_column_id":"todo","source_index":0,"dest_column_id":"done","dest_index":0}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.sync.Flush(ctx))

	w = ts.do(t, http.MethodGet, "/api/reconcile/failures", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Failures []models.ReconcileFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "A", body.Failures[0].TaskID)
	assert.Equal(t, "boom", body.Failures[0].Message)

	w = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `kanban_moves_total{scope="cross_column"} 1`)
	assert.Contains(t, w.Body.String(), `kanban_reconcile_updates_total{outcome="failure"} 1`)
}
