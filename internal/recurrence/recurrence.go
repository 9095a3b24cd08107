// Package recurrence decides what happens when a task is marked complete:
// the patch for the finished task and, for recurring tasks, the next occurrence.
package recurrence

import (
	"fmt"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/date"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

// Options tunes CompleteWith for the task's board.
type Options struct {
	// NotStartedLabel is the status given to a successor. Empty means "Not Started".
	NotStartedLabel string
}

// Result is what completing a task produces. Nothing is persisted here.
type Result struct {
	// CompletedPatch is the full data bag to store on the existing task.
	CompletedPatch model.Data
	// Successor is nil when no new occurrence should be created.
	Successor *model.Task
	// Warning is set when the recurrence value was not understood.
	Warning string
}

// IsCompleted reports whether either completion signal is present: a done
// status, or any non-empty date_completed string.
func IsCompleted(t model.Task) bool {
	if model.IsDoneStatus(t.Data.String(model.KeyStatus)) {
		return true
	}
	return t.Data.String(model.KeyDateCompleted) != ""
}

// Complete is CompleteWith using the default not-started label.
func Complete(t model.Task, today date.Date) Result {
	return CompleteWith(t, today, Options{})
}

// CompleteWith builds the completed data bag for t and, when t recurs, its
// next occurrence due one period after its due date (or today).
func CompleteWith(t model.Task, today date.Date, opts Options) Result {
	patch := t.Data.Clone()
	patch[model.KeyStatus] = model.StatusDone
	patch[model.KeyDateCompleted] = today.String()

	res := Result{CompletedPatch: patch}
	if t.Recurrence.IsNone() {
		return res
	}

	base := today
	if raw := t.Data.String(model.KeyDueDate); raw != "" {
		if d, err := date.Parse(raw); err == nil {
			base = d
		}
	}

	next, ok := NextDueDate(t.Recurrence, base)
	if !ok {
		res.Warning = fmt.Sprintf("unrecognized recurrence %q on task %q; no successor created", t.Recurrence, t.ID)
		return res
	}

	label := opts.NotStartedLabel
	if strings.TrimSpace(label) == "" {
		label = model.StatusNotStarted
	}

	data := t.Data.Clone()
	data[model.KeyStatus] = label
	data[model.KeyDateCompleted] = nil
	data[model.KeyDueDate] = next.String()

	res.Successor = &model.Task{
		Title:      t.Title,
		BoardID:    t.BoardID,
		Recurrence: t.Recurrence,
		Data:       data,
		OrderIndex: t.OrderIndex,
	}
	return res
}

// NextDueDate advances base by one recurrence step. ok is false for none and
// for unknown values.
func NextDueDate(r model.Recurrence, base date.Date) (next date.Date, ok bool) {
	switch model.Recurrence(strings.ToLower(strings.TrimSpace(string(r)))) {
	case model.RecurrenceDaily:
		return base.AddDays(1), true
	case model.RecurrenceWeekly:
		return base.AddDays(7), true
	case model.RecurrenceMonthly:
		return base.AddMonths(1), true
	default:
		return date.Date{}, false
	}
}
