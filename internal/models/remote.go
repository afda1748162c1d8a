package models

import (
	"encoding/json"
	"strings"
)

// RemoteID accepts identifiers encoded either as JSON strings or numbers.
type RemoteID string

func (id *RemoteID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RemoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RemoteID(n.String())
	return nil
}

func (id RemoteID) String() string {
	return string(id)
}

type KanbanColumn struct {
	ID   RemoteID `json:"id"`
	Name string   `json:"name"`
}

type KanbanColumnList struct {
	Columns []KanbanColumn `json:"columns"`
}

type KanbanTask struct {
	ID          RemoteID `json:"id"`
	Description string   `json:"description"`
}

type KanbanTaskList struct {
	Tasks []KanbanTask `json:"tasks"`
}

type ColumnPayload struct {
	Name string `json:"name"`
}

type CreatedColumn struct {
	ColumnID RemoteID `json:"column_id"`
}

type TaskPayload struct {
	Description string `json:"description"`
}

type CreatedTask struct {
	TaskID RemoteID `json:"task_id"`
}

// TaskUpdate moves and/or edits a task. Sending updates for every task of a
// column in display order is what persists the order remotely.
type TaskUpdate struct {
	ColumnID    string `json:"column_id"`
	Description string `json:"description"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorBody is the JSON body of a non-2xx remote response.
type ErrorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Text returns the human-readable message carried by the body, if any.
func (e ErrorBody) Text() string {
	if len(e.Detail) > 0 && string(e.Detail) != "null" {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(e.Detail))
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
