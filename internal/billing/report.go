package billing

import (
	"sort"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

type ClientReport struct {
	ClientID   string           `json:"client_id"`
	ClientName string           `json:"client_name"`
	Hours      float64          `json:"hours"`
	Retainer   *RetainerSummary `json:"retainer,omitempty"`
}

type MonthlyReport struct {
	Month      string         `json:"month"`
	Clients    []ClientReport `json:"clients"`
	TotalHours float64        `json:"total_hours"`
	TotalCost  float64        `json:"total_cost"`
}

// BuildMonthlyReport produces one row per client. Only active retainers are
// reconciled; clients without one report hours alone. Output is rounded.
func BuildMonthlyReport(clients []model.Client, retainers []model.Retainer, entries []model.TimeEntry, p Period) MonthlyReport {
	active := make(map[string]model.Retainer, len(retainers))
	for _, r := range retainers {
		if r.IsActive {
			active[r.ClientID] = r
		}
	}

	rep := MonthlyReport{Month: p.Label(), Clients: make([]ClientReport, 0, len(clients))}
	for _, c := range clients {
		clientEntries := EntriesInPeriod(entries, p, c.ID)
		row := ClientReport{
			ClientID:   c.ID,
			ClientName: c.Name,
			Hours:      UsedMinutes(clientEntries) / 60,
		}
		if r, ok := active[c.ID]; ok {
			s := SummarizeRetainerUsage(r, clientEntries)
			rep.TotalCost += s.TotalCost
			rounded := s.Rounded()
			row.Retainer = &rounded
		}
		rep.TotalHours += row.Hours
		row.Hours = Round2(row.Hours)
		rep.Clients = append(rep.Clients, row)
	}

	sort.SliceStable(rep.Clients, func(i, j int) bool {
		return rep.Clients[i].ClientName < rep.Clients[j].ClientName
	})
	rep.TotalHours = Round2(rep.TotalHours)
	rep.TotalCost = Round2(rep.TotalCost)
	return rep
}
