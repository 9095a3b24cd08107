package recurrence

import (
	"github.com/AndyHark/HarkFlowV2-sub000/internal/date"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

type DueState string

const (
	DueNone     DueState = ""
	DueOverdue  DueState = "overdue"
	DueToday    DueState = "due_today"
	DueUpcoming DueState = "upcoming"
)

// Due classifies an open task against today. Completed tasks and tasks with
// no parseable due date are DueNone.
func Due(t model.Task, today date.Date) DueState {
	if IsCompleted(t) {
		return DueNone
	}
	raw := t.Data.String(model.KeyDueDate)
	if raw == "" {
		return DueNone
	}
	d, err := date.Parse(raw)
	if err != nil {
		return DueNone
	}
	switch {
	case d.Before(today):
		return DueOverdue
	case d.Equal(today):
		return DueToday
	default:
		return DueUpcoming
	}
}
