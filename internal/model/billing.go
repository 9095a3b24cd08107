package model

import "time"

type Retainer struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	MonthlyHours float64   `json:"monthly_hours"`
	HourlyRate   float64   `json:"hourly_rate"`
	OverageRate  float64   `json:"overage_rate,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedDate  time.Time `json:"created_date"`
	UpdatedDate  time.Time `json:"updated_date"`
}

// EffectiveOverageRate falls back to the hourly rate when no overage rate is set.
func (r Retainer) EffectiveOverageRate() float64 {
	if r.OverageRate > 0 {
		return r.OverageRate
	}
	return r.HourlyRate
}

type TimeEntry struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"client_id"`
	TaskID    string     `json:"task_id,omitempty"`
	UserEmail string     `json:"user_email"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	// DurationMinutes is nil while the timer runs.
	DurationMinutes *float64  `json:"duration_minutes"`
	IsRunning       bool      `json:"is_running"`
	HourlyRate      float64   `json:"hourly_rate"` // snapshot at creation
	Description     string    `json:"description,omitempty"`
	CreatedDate     time.Time `json:"created_date"`
	UpdatedDate     time.Time `json:"updated_date"`
}

// Minutes is the billable duration; running or empty entries count as zero.
func (e TimeEntry) Minutes() float64 {
	if e.DurationMinutes == nil || *e.DurationMinutes <= 0 {
		return 0
	}
	return *e.DurationMinutes
}
