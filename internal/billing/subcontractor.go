package billing

import (
	"sort"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
)

type UserCost struct {
	UserEmail string  `json:"user_email"`
	FullName  string  `json:"full_name,omitempty"`
	Hours     float64 `json:"hours"`
	Cost      float64 `json:"cost"`
	Entries   int     `json:"entries"`
}

// SummarizeSubcontractorCost totals hours and cost per user. Cost uses the
// rate stored on each entry, never the user's current rate, so past totals
// do not move when a rate changes. Sorted by cost, highest first.
func SummarizeSubcontractorCost(entries []model.TimeEntry, users []model.User) []UserCost {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[strings.ToLower(u.Email)] = u.FullName
	}

	byUser := map[string]*UserCost{}
	order := []string{}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.UserEmail))
		uc, ok := byUser[key]
		if !ok {
			uc = &UserCost{UserEmail: e.UserEmail, FullName: names[key]}
			byUser[key] = uc
			order = append(order, key)
		}
		hours := e.Minutes() / 60
		uc.Hours += hours
		uc.Cost += hours * e.HourlyRate
		uc.Entries++
	}

	out := make([]UserCost, 0, len(order))
	for _, key := range order {
		out = append(out, *byUser[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		return out[i].UserEmail < out[j].UserEmail
	})
	return out
}

func RoundUserCosts(in []UserCost) []UserCost {
	out := make([]UserCost, len(in))
	for i, uc := range in {
		uc.Hours = Round2(uc.Hours)
		uc.Cost = Round2(uc.Cost)
		out[i] = uc
	}
	return out
}
