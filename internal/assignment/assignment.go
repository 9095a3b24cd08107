// Package assignment decides which tasks belong on a user's personal list.
package assignment

import (
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

// BoardIndex maps board IDs to the IDs of their people columns.
type BoardIndex map[string][]string

func NewBoardIndex(boards []model.Board) BoardIndex {
	idx := make(BoardIndex, len(boards))
	for _, b := range boards {
		idx[b.ID] = b.PeopleColumns()
	}
	return idx
}

// IsAssignedToUser checks the assignee field first, then any people columns
// of the task's board. Email comparison ignores case.
func IsAssignedToUser(t model.Task, userEmail string, boards []model.Board) bool {
	for _, b := range boards {
		if b.ID == t.BoardID {
			return isAssigned(t, normalizeEmail(userEmail), b.PeopleColumns())
		}
	}
	return isAssigned(t, normalizeEmail(userEmail), nil)
}

// IsAssigned is IsAssignedToUser against a prebuilt index.
func (idx BoardIndex) IsAssigned(t model.Task, userEmail string) bool {
	return isAssigned(t, normalizeEmail(userEmail), idx[t.BoardID])
}

// FilterTasks keeps the tasks assigned to userEmail, preserving order.
func FilterTasks(tasks []model.Task, userEmail string, idx BoardIndex) []model.Task {
	email := normalizeEmail(userEmail)
	out := make([]model.Task, 0, len(tasks))
	if email == "" {
		return out
	}
	for _, t := range tasks {
		if isAssigned(t, email, idx[t.BoardID]) {
			out = append(out, t)
		}
	}
	return out
}

func isAssigned(t model.Task, email string, peopleColumns []string) bool {
	if email == "" {
		return false
	}
	if containsEmail(t.Data.Strings(model.KeyAssignee), email) {
		return true
	}
	for _, colID := range peopleColumns {
		if containsEmail(t.Data.Strings(colID), email) {
			return true
		}
	}
	return false
}

func containsEmail(values []string, email string) bool {
	for _, v := range values {
		if normalizeEmail(v) == email {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
