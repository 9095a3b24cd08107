package model

import (
	"strings"
	"time"
)

type TaskID string

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// IsNone reports whether r asks for no successor. Empty counts as none.
func (r Recurrence) IsNone() bool {
	v := strings.ToLower(strings.TrimSpace(string(r)))
	return v == "" || v == string(RecurrenceNone)
}

// Well-known keys of Task.Data.
const (
	KeyStatus        = "status"
	KeyDueDate       = "due_date"
	KeyDateCompleted = "date_completed"
	KeyAssignee      = "assignee"
	KeyPriority      = "priority"
	KeyWorkCategory  = "work_category"
	KeySubtasks      = "subtasks"
	KeyDescription   = "description"
)

const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
	StatusBlocked    = "Blocked"
)

type Task struct {
	ID          TaskID     `json:"id"`
	Title       string     `json:"title"`
	BoardID     string     `json:"board_id"`
	Recurrence  Recurrence `json:"recurrence,omitempty"`
	Data        Data       `json:"data"`
	OrderIndex  int        `json:"order_index"`
	CreatedDate time.Time  `json:"created_date"`
	UpdatedDate time.Time  `json:"updated_date"`
}

func (t Task) Status() string {
	return t.Data.String(KeyStatus)
}

func (t Task) DueDate() string {
	return t.Data.String(KeyDueDate)
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Subtasks decodes the subtasks key. Malformed entries are skipped.
func (t Task) Subtasks() []Subtask {
	raw, ok := t.Data[KeySubtasks].([]any)
	if !ok {
		if typed, ok := t.Data[KeySubtasks].([]Subtask); ok {
			return append([]Subtask(nil), typed...)
		}
		return nil
	}
	out := make([]Subtask, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		st := Subtask{}
		st.ID, _ = m["id"].(string)
		st.Title, _ = m["title"].(string)
		st.Completed, _ = m["completed"].(bool)
		out = append(out, st)
	}
	return out
}
