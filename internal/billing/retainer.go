// Package billing rolls time entries up against retainers and per-user rates.
package billing

import (
	"math"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

// RetainerSummary values are unrounded; call Rounded before reporting.
type RetainerSummary struct {
	UsedHours      float64 `json:"used_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	OverageHours   float64 `json:"overage_hours"`
	RetainerCost   float64 `json:"retainer_cost"`
	OverageCost    float64 `json:"overage_cost"`
	TotalCost      float64 `json:"total_cost"`
}

// SummarizeRetainerUsage reconciles a period's entries against a retainer.
// The retainer cost is the contracted amount whether or not hours were used.
func SummarizeRetainerUsage(r model.Retainer, entries []model.TimeEntry) RetainerSummary {
	used := UsedMinutes(entries) / 60

	s := RetainerSummary{
		UsedHours:      used,
		RemainingHours: math.Max(0, r.MonthlyHours-used),
		OverageHours:   math.Max(0, used-r.MonthlyHours),
		RetainerCost:   r.MonthlyHours * r.HourlyRate,
	}
	s.OverageCost = s.OverageHours * r.EffectiveOverageRate()
	s.TotalCost = s.RetainerCost + s.OverageCost
	return s
}

// UsedMinutes sums stopped entries. Running timers contribute nothing.
func UsedMinutes(entries []model.TimeEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Minutes()
	}
	return total
}

func (s RetainerSummary) Rounded() RetainerSummary {
	return RetainerSummary{
		UsedHours:      Round2(s.UsedHours),
		RemainingHours: Round2(s.RemainingHours),
		OverageHours:   Round2(s.OverageHours),
		RetainerCost:   Round2(s.RetainerCost),
		OverageCost:    Round2(s.OverageCost),
		TotalCost:      Round2(s.TotalCost),
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
