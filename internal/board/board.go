// Package board holds the in-memory model of a kanban board.
//
// A Board is a value: every transition returns a new Board and never touches
// the slices of the one it was derived from, so a Board handed to a reader
// stays stable while the next one is being built.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidIndex    = errors.New("invalid index")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrDuplicateTask   = errors.New("duplicate task")
)

type Task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

func (c Column) clone() Column {
	tasks := make([]Task, len(c.Tasks))
	copy(tasks, c.Tasks)
	c.Tasks = tasks
	return c
}

// Board is an ordered set of columns keyed by id. The zero value is an empty board.
type Board struct {
	order   []string
	columns map[string]Column
}

// New builds a board from columns in display order. A task id may appear in
// only one column.
func New(columns ...Column) (Board, error) {
	b := Board{
		order:   make([]string, 0, len(columns)),
		columns: make(map[string]Column, len(columns)),
	}
	owners := make(map[string]string)
	for _, c := range columns {
		if _, ok := b.columns[c.ID]; ok {
			return Board{}, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.ID)
		}
		for _, t := range c.Tasks {
			if owner, ok := owners[t.ID]; ok {
				return Board{}, fmt.Errorf("%w: %s in columns %s and %s", ErrDuplicateTask, t.ID, owner, c.ID)
			}
			owners[t.ID] = c.ID
		}
		b.order = append(b.order, c.ID)
		b.columns[c.ID] = c.clone()
	}
	return b, nil
}

func (b Board) Len() int {
	return len(b.order)
}

func (b Board) TaskCount() int {
	n := 0
	for _, c := range b.columns {
		n += len(c.Tasks)
	}
	return n
}

// Column returns a copy of the column, safe to modify.
func (b Board) Column(id string) (Column, bool) {
	c, ok := b.columns[id]
	if !ok {
		return Column{}, false
	}
	return c.clone(), true
}

// Columns returns copies of all columns in display order.
func (b Board) Columns() []Column {
	out := make([]Column, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.columns[id].clone())
	}
	return out
}

func (b Board) ColumnIDs() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Locate returns the owning column and position of a task.
func (b Board) Locate(taskID string) (columnID string, index int, ok bool) {
	for _, id := range b.order {
		for i, t := range b.columns[id].Tasks {
			if t.ID == taskID {
				return id, i, true
			}
		}
	}
	return "", -1, false
}

// derive copies the order and the column index. Column task slices are shared
// with b until a transition replaces them.
func (b Board) derive() Board {
	next := Board{
		order:   make([]string, len(b.order), len(b.order)+1),
		columns: make(map[string]Column, len(b.columns)+1),
	}
	copy(next.order, b.order)
	for id, c := range b.columns {
		next.columns[id] = c
	}
	return next
}

// Move takes the task at srcIndex of column srcID and inserts it at dstIndex
// of column dstID. dstIndex is interpreted against the destination sequence
// after the removal, like a list splice; an index past the end appends.
func (b Board) Move(srcID string, srcIndex int, dstID string, dstIndex int) (Board, error) {
	src, ok := b.columns[srcID]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, srcID)
	}
	dst, ok := b.columns[dstID]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, dstID)
	}
	if srcIndex < 0 || srcIndex >= len(src.Tasks) {
		return Board{}, fmt.Errorf("%w: source index %d out of range for column %s with %d tasks",
			ErrInvalidIndex, srcIndex, srcID, len(src.Tasks))
	}
	if dstIndex < 0 {
		return Board{}, fmt.Errorf("%w: negative destination index %d", ErrInvalidIndex, dstIndex)
	}

	next := b.derive()
	remaining, moved := removeAt(src.Tasks, srcIndex)
	if srcID == dstID {
		src.Tasks = insertAt(remaining, dstIndex, moved)
		next.columns[srcID] = src
		return next, nil
	}

	src.Tasks = remaining
	dst.Tasks = insertAt(dst.Tasks, dstIndex, moved)
	next.columns[srcID] = src
	next.columns[dstID] = dst
	return next, nil
}

// AppendColumn adds c as the right-most column.
func (b Board) AppendColumn(c Column) (Board, error) {
	if _, ok := b.columns[c.ID]; ok {
		return Board{}, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.ID)
	}
	for _, t := range c.Tasks {
		if owner, _, ok := b.Locate(t.ID); ok {
			return Board{}, fmt.Errorf("%w: %s already in column %s", ErrDuplicateTask, t.ID, owner)
		}
	}
	next := b.derive()
	next.order = append(next.order, c.ID)
	next.columns[c.ID] = c.clone()
	return next, nil
}

// AppendTask adds t at the end of column columnID.
func (b Board) AppendTask(columnID string, t Task) (Board, error) {
	c, ok := b.columns[columnID]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	if owner, _, ok := b.Locate(t.ID); ok {
		return Board{}, fmt.Errorf("%w: %s already in column %s", ErrDuplicateTask, t.ID, owner)
	}
	next := b.derive()
	c.Tasks = insertAt(c.Tasks, len(c.Tasks), t)
	next.columns[columnID] = c
	return next, nil
}

func (b Board) RemoveTask(columnID, taskID string) (Board, error) {
	c, ok := b.columns[columnID]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	for i, t := range c.Tasks {
		if t.ID != taskID {
			continue
		}
		next := b.derive()
		c.Tasks, _ = removeAt(c.Tasks, i)
		next.columns[columnID] = c
		return next, nil
	}
	return Board{}, fmt.Errorf("%w: %s in column %s", ErrTaskNotFound, taskID, columnID)
}

// RemoveColumn drops the column together with the tasks it owns.
func (b Board) RemoveColumn(columnID string) (Board, error) {
	if _, ok := b.columns[columnID]; !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	next := b.derive()
	delete(next.columns, columnID)
	next.order = next.order[:0]
	for _, id := range b.order {
		if id != columnID {
			next.order = append(next.order, id)
		}
	}
	return next, nil
}

func (b Board) RenameColumn(columnID, title string) (Board, error) {
	c, ok := b.columns[columnID]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	next := b.derive()
	c.Title = title
	next.columns[columnID] = c
	return next, nil
}

type boardJSON struct {
	Columns []Column `json:"columns"`
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{Columns: b.Columns()})
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, err := New(raw.Columns...)
	if err != nil {
		return err
	}
	*b = next
	return nil
}

func removeAt(tasks []Task, i int) ([]Task, Task) {
	out := make([]Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	out = append(out, tasks[i+1:]...)
	return out, tasks[i]
}

func insertAt(tasks []Task, i int, t Task) []Task {
	if i > len(tasks) {
		i = len(tasks)
	}
	out := make([]Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, t)
	out = append(out, tasks[i:]...)
	return out
}
