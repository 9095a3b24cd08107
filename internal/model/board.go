package model

import "time"

type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnStatus   ColumnType = "status"
	ColumnPeople   ColumnType = "people"
	ColumnDate     ColumnType = "date"
	ColumnNumber   ColumnType = "number"
	ColumnDropdown ColumnType = "dropdown"
)

type Column struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Type    ColumnType `json:"type"`
	Options []string   `json:"options,omitempty"`
}

type Board struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ClientID    string    `json:"client_id,omitempty"`
	Columns     []Column  `json:"columns"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// PeopleColumns returns the IDs of the columns holding assignee emails.
func (b Board) PeopleColumns() []string {
	var out []string
	for _, c := range b.Columns {
		if c.Type == ColumnPeople {
			out = append(out, c.ID)
		}
	}
	return out
}

// NotStartedLabel scans the options of every status column, in order, and
// returns the first one that reads like a not-started state (not started,
// to do, todo, backlog). Without a match it returns the default label.
func (b Board) NotStartedLabel() string {
	for _, c := range b.Columns {
		if c.Type != ColumnStatus || len(c.Options) == 0 {
			continue
		}
		for _, opt := range c.Options {
			switch normalizeLabel(opt) {
			case "not started", "to do", "todo", "backlog":
				return opt
			}
		}
	}
	return StatusNotStarted
}
