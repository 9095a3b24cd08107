package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

const monthLayout = "2006-01"

// Period is a billing month, [Start, End) in local time.
type Period struct {
	Start time.Time
	End   time.Time
}

func MonthOf(t time.Time) Period {
	t = t.In(time.Local)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParseMonth accepts YYYY-MM. An empty string means the month containing now.
func ParseMonth(s string, now time.Time) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MonthOf(now), nil
	}
	t, err := time.ParseInLocation(monthLayout, s, time.Local)
	if err != nil {
		return Period{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}

func (p Period) Label() string {
	return p.Start.Format(monthLayout)
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// EntriesInPeriod keeps entries that started inside p, optionally for one client.
func EntriesInPeriod(entries []model.TimeEntry, p Period, clientID string) []model.TimeEntry {
	out := make([]model.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if clientID != "" && e.ClientID != clientID {
			continue
		}
		if p.Contains(e.StartTime) {
			out = append(out, e)
		}
	}
	return out
}
