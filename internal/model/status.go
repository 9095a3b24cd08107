package model

import "strings"

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsDoneStatus reports whether a free-text status means the task is finished.
func IsDoneStatus(s string) bool {
	switch normalizeLabel(s) {
	case "done", "completed", "complete":
		return true
	default:
		return false
	}
}
