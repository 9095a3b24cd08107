package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

var (
	ErrInvalid       = errors.New("invalid board")
	ErrDuplicateCol  = errors.New("duplicate column id")
	ErrUnknownColumn = errors.New("unknown column type")
	ErrHasTasks      = errors.New("board still has tasks")
)

var columnTypes = map[model.ColumnType]bool{
	model.ColumnText:     true,
	model.ColumnStatus:   true,
	model.ColumnPeople:   true,
	model.ColumnDate:     true,
	model.ColumnNumber:   true,
	model.ColumnDropdown: true,
}

// DefaultColumns is the layout given to boards created without columns.
func DefaultColumns() []model.Column {
	return []model.Column{
		{ID: model.KeyStatus, Title: "Status", Type: model.ColumnStatus, Options: []string{
			model.StatusNotStarted, model.StatusInProgress, model.StatusDone, model.StatusBlocked,
		}},
		{ID: model.KeyAssignee, Title: "Assignee", Type: model.ColumnPeople},
		{ID: model.KeyDueDate, Title: "Due", Type: model.ColumnDate},
		{ID: model.KeyPriority, Title: "Priority", Type: model.ColumnDropdown, Options: []string{"low", "medium", "high", "urgent"}},
	}
}

// ValidateColumns checks ids are unique and non-empty and types are known.
// Column ids double as keys of Task.Data.
func ValidateColumns(cols []model.Column) error {
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("%w: column %d has no id", ErrInvalid, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateCol, id)
		}
		seen[id] = true
		if !columnTypes[c.Type] {
			return fmt.Errorf("%w: %q on column %s", ErrUnknownColumn, c.Type, id)
		}
		if c.Type == model.ColumnStatus && len(c.Options) == 0 {
			return fmt.Errorf("%w: status column %s needs options", ErrInvalid, id)
		}
	}
	return nil
}
