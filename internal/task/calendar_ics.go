package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/date"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

const (
	icsDay       = "20060102"
	icsStamp     = "20060102T150405Z"
	icsLineLimit = 75
)

var icsEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// BuildTaskCalendarICS renders a task as a single all-day VEVENT. Recurring
// tasks carry an RRULE so calendar clients show future occurrences.
func BuildTaskCalendarICS(t model.Task, now time.Time) (string, error) {
	raw := strings.TrimSpace(t.DueDate())
	if raw == "" {
		return "", fmt.Errorf("%w: due_date required for calendar export", ErrInvalid)
	}
	due, err := date.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalid)
	}

	uid := "task-" + string(t.ID) + "@harkflow"
	if strings.TrimSpace(string(t.ID)) == "" {
		uid = fmt.Sprintf("task-export-%d@harkflow", now.UnixNano())
	}
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "HarkFlow Task"
	}

	var w icsWriter
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.line("PRODID:-//HarkFlow//Task Export//EN")
	w.line("CALSCALE:GREGORIAN")
	w.line("METHOD:PUBLISH")
	w.line("BEGIN:VEVENT")
	w.text("UID", uid)
	w.line("DTSTAMP:" + now.UTC().Format(icsStamp))
	w.text("SUMMARY", title)
	w.line("DTSTART;VALUE=DATE:" + due.Format(icsDay))
	w.line("DTEND;VALUE=DATE:" + due.AddDays(1).Format(icsDay))
	if desc := strings.TrimSpace(t.Data.String(model.KeyDescription)); desc != "" {
		w.text("DESCRIPTION", desc)
	}
	if st := t.Status(); st != "" {
		w.text("X-HARKFLOW-STATUS", st)
	}
	if freq := icsFreq(t.Recurrence, due); freq != "" {
		w.line("RRULE:FREQ=" + freq + ";INTERVAL=1")
	}
	w.line("END:VEVENT")
	w.line("END:VCALENDAR")
	return w.b.String(), nil
}

// icsFreq maps a recurrence to an RRULE frequency. A monthly series due after
// the 28th gets none: successors roll into the next month (Jan 31 becomes
// Mar 2) and no RRULE produces that sequence.
func icsFreq(r model.Recurrence, due date.Date) string {
	switch model.Recurrence(strings.ToLower(strings.TrimSpace(string(r)))) {
	case model.RecurrenceDaily:
		return "DAILY"
	case model.RecurrenceWeekly:
		return "WEEKLY"
	case model.RecurrenceMonthly:
		if due.Day() > 28 {
			return ""
		}
		return "MONTHLY"
	}
	return ""
}

type icsWriter struct {
	b strings.Builder
}

func (w *icsWriter) text(name, value string) {
	w.line(name + ":" + icsEscaper.Replace(value))
}

// line writes one content line, folding at 75 octets without splitting a
// UTF-8 sequence.
func (w *icsWriter) line(s string) {
	limit := icsLineLimit
	for len(s) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		w.b.WriteString(s[:cut])
		w.b.WriteString("\r\n ")
		s = s[cut:]
		limit = icsLineLimit - 1
	}
	w.b.WriteString(s)
	w.b.WriteString("\r\n")
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
