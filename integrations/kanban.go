package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chxlky/kanban-sync/internal/metrics"
	"github.com/chxlky/kanban-sync/internal/models"
	"go.uber.org/zap"
)

const maxErrorBody = 64 << 10

// KanbanClient talks to the remote kanban API. Client is expected to carry
// the bearer credential, see NewHTTPClient.
type KanbanClient struct {
	Client  *http.Client
	BaseURL string
	Metrics *metrics.Metrics
}

func NewKanbanClient(baseURL string, client *http.Client, m *metrics.Metrics) *KanbanClient {
	if client == nil {
		client = &http.Client{}
	}
	return &KanbanClient{
		Client:  client,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Metrics: m,
	}
}

func (kc *KanbanClient) ListColumns(ctx context.Context) ([]models.KanbanColumn, error) {
	var out models.KanbanColumnList
	if err := kc.do(ctx, "list columns", http.MethodGet, "/kanban/", nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

func (kc *KanbanClient) ListTasks(ctx context.Context, columnID string) ([]models.KanbanTask, error) {
	var out models.KanbanTaskList
	if err := kc.do(ctx, "list tasks", http.MethodGet, tasksPath(columnID), nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (kc *KanbanClient) CreateColumn(ctx context.Context, name string) (string, error) {
	var out models.CreatedColumn
	if err := kc.do(ctx, "create column", http.MethodPost, "/kanban/", models.ColumnPayload{Name: name}, &out); err != nil {
		return "", err
	}
	if out.ColumnID == "" {
		return "", &FetchError{Op: "create column", Err: fmt.Errorf("response carries no column_id")}
	}
	return out.ColumnID.String(), nil
}

func (kc *KanbanClient) RenameColumn(ctx context.Context, columnID, name string) error {
	return kc.do(ctx, "rename column", http.MethodPatch, columnPath(columnID), models.ColumnPayload{Name: name}, nil)
}

func (kc *KanbanClient) DeleteColumn(ctx context.Context, columnID string) error {
	return kc.do(ctx, "delete column", http.MethodDelete, columnPath(columnID), nil, nil)
}

func (kc *KanbanClient) CreateTask(ctx context.Context, columnID, description string) (string, error) {
	var out models.CreatedTask
	if err := kc.do(ctx, "create task", http.MethodPost, tasksPath(columnID), models.TaskPayload{Description: description}, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", &FetchError{Op: "create task", Err: fmt.Errorf("response carries no task_id")}
	}
	return out.TaskID.String(), nil
}

// UpdateTask addresses the task under columnID, the column the remote
// currently files it in, and sets its owner to update.ColumnID.
func (kc *KanbanClient) UpdateTask(ctx context.Context, columnID, taskID string, update models.TaskUpdate) error {
	return kc.do(ctx, "update task", http.MethodPatch, taskPath(columnID, taskID), update, nil)
}

func (kc *KanbanClient) DeleteTask(ctx context.Context, columnID, taskID string) error {
	return kc.do(ctx, "delete task", http.MethodDelete, taskPath(columnID, taskID), nil, nil)
}

func (kc *KanbanClient) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		kc.Metrics.ObserveRemote(op, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, kc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := kc.Client.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: remoteMessage(resp.Status, bodyBytes)}
	}

	zap.L().Debug("Kanban API call succeeded",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// remoteMessage extracts the human-readable text of an error response,
// falling back to the raw body and finally to the status line.
func remoteMessage(status string, body []byte) string {
	var parsed models.ErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if text := parsed.Text(); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}

func columnPath(columnID string) string {
	return "/kanban/" + url.PathEscape(columnID) + "/"
}

func tasksPath(columnID string) string {
	return columnPath(columnID) + "tasks/"
}

func taskPath(columnID, taskID string) string {
	return tasksPath(columnID) + url.PathEscape(taskID) + "/"
}
