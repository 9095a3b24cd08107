// Package timetrack runs per-user timers and stores billable time entries.
package timetrack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/billing"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/clock"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

var (
	ErrTimerRunning = errors.New("a timer is already running")
	ErrNotRunning   = errors.New("timer is not running")
	ErrNotOwner     = errors.New("time entry belongs to another user")
	ErrInvalid      = errors.New("invalid time entry")
)

type Repo interface {
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]model.TimeEntry, error)
	Get(ctx context.Context, id string) (model.TimeEntry, error)
	Create(ctx context.Context, e model.TimeEntry) (model.TimeEntry, error)
	Update(ctx context.Context, id string, patch map[string]any) (model.TimeEntry, error)
	Delete(ctx context.Context, id string) error
}

type UserLookup interface {
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]model.User, error)
}

type Options struct {
	Clock       clock.Clock
	Logger      *zap.Logger
	DefaultRate float64
}

type Service struct {
	entries Repo
	users   UserLookup
	clock   clock.Clock
	logger  *zap.Logger
	rate    float64

	// serializes the running-timer check with its create
	mu sync.Mutex
}

func NewService(entries Repo, users UserLookup, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		entries: entries,
		users:   users,
		clock:   opts.Clock,
		logger:  opts.Logger,
		rate:    opts.DefaultRate,
	}
}

type StartInput struct {
	ClientID    string `json:"client_id"`
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
}

type LogInput struct {
	ClientID        string    `json:"client_id"`
	TaskID          string    `json:"task_id"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes float64   `json:"duration_minutes"`
}

type ListFilter struct {
	ClientID  string
	UserEmail string
	Month     string // YYYY-MM, empty for all time
}

func (s *Service) Start(ctx context.Context, email string, in StartInput) (model.TimeEntry, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.TimeEntry{}, fmt.Errorf("%w: user email is required", ErrInvalid)
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return model.TimeEntry{}, fmt.Errorf("%w: client_id is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	running, err := s.active(ctx, email)
	if err != nil {
		return model.TimeEntry{}, err
	}
	if running != nil {
		return model.TimeEntry{}, fmt.Errorf("%w: entry %s", ErrTimerRunning, running.ID)
	}

	rate, err := s.rateFor(ctx, email)
	if err != nil {
		return model.TimeEntry{}, err
	}
	e, err := s.entries.Create(ctx, model.TimeEntry{
		ClientID:    in.ClientID,
		TaskID:      in.TaskID,
		UserEmail:   email,
		StartTime:   s.clock.Now(),
		IsRunning:   true,
		HourlyRate:  rate,
		Description: strings.TrimSpace(in.Description),
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	s.logger.Info("timer_started", zap.String("entry_id", e.ID), zap.String("user", email), zap.Float64("rate", rate))
	return e, nil
}

// Stop ends a running timer. Durations are whole minutes, at least one.
func (s *Service) Stop(ctx context.Context, email, id string) (model.TimeEntry, error) {
	e, err := s.entries.Get(ctx, id)
	if err != nil {
		return model.TimeEntry{}, err
	}
	if normalizeEmail(e.UserEmail) != normalizeEmail(email) {
		return model.TimeEntry{}, ErrNotOwner
	}
	if !e.IsRunning {
		return model.TimeEntry{}, ErrNotRunning
	}

	end := s.clock.Now()
	minutes := math.Max(1, math.Round(end.Sub(e.StartTime).Minutes()))
	out, err := s.entries.Update(ctx, id, map[string]any{
		"end_time":         end,
		"duration_minutes": minutes,
		"is_running":       false,
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	s.logger.Info("timer_stopped", zap.String("entry_id", id), zap.Float64("minutes", minutes))
	return out, nil
}

// Active returns the user's running timer, or nil.
func (s *Service) Active(ctx context.Context, email string) (*model.TimeEntry, error) {
	return s.active(ctx, normalizeEmail(email))
}

func (s *Service) active(ctx context.Context, email string) (*model.TimeEntry, error) {
	es, err := s.entries.Filter(ctx, store.Query{"user_email": email, "is_running": true}, "-start_time", 1)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, nil
	}
	return &es[0], nil
}

// Log stores a finished entry entered by hand.
func (s *Service) Log(ctx context.Context, email string, in LogInput) (model.TimeEntry, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.TimeEntry{}, fmt.Errorf("%w: user email is required", ErrInvalid)
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return model.TimeEntry{}, fmt.Errorf("%w: client_id is required", ErrInvalid)
	}
	if in.DurationMinutes <= 0 {
		return model.TimeEntry{}, fmt.Errorf("%w: duration_minutes must be positive", ErrInvalid)
	}
	start := in.StartTime
	if start.IsZero() {
		start = s.clock.Now().Add(-time.Duration(in.DurationMinutes * float64(time.Minute)))
	}
	end := start.Add(time.Duration(in.DurationMinutes * float64(time.Minute)))
	rate, err := s.rateFor(ctx, email)
	if err != nil {
		return model.TimeEntry{}, err
	}
	mins := in.DurationMinutes
	return s.entries.Create(ctx, model.TimeEntry{
		ClientID:        in.ClientID,
		TaskID:          in.TaskID,
		UserEmail:       email,
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: &mins,
		HourlyRate:      rate,
		Description:     strings.TrimSpace(in.Description),
	})
}

func (s *Service) Get(ctx context.Context, id string) (model.TimeEntry, error) {
	return s.entries.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, email, id string) error {
	e, err := s.entries.Get(ctx, id)
	if err != nil {
		return err
	}
	if normalizeEmail(e.UserEmail) != normalizeEmail(email) {
		return ErrNotOwner
	}
	return s.entries.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]model.TimeEntry, error) {
	q := store.Query{}
	if f.ClientID != "" {
		q["client_id"] = f.ClientID
	}
	if f.UserEmail != "" {
		q["user_email"] = normalizeEmail(f.UserEmail)
	}
	es, err := s.entries.Filter(ctx, q, "-start_time", 0)
	if err != nil {
		return nil, err
	}
	if f.Month == "" {
		return es, nil
	}
	p, err := billing.ParseMonth(f.Month, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return billing.EntriesInPeriod(es, p, ""), nil
}

// rateFor snapshots the member's current rate; unknown members get the default.
func (s *Service) rateFor(ctx context.Context, email string) (float64, error) {
	if s.users == nil {
		return s.rate, nil
	}
	us, err := s.users.Filter(ctx, store.Query{"email": email}, "", 1)
	if err != nil {
		return 0, err
	}
	if len(us) == 1 && us[0].HourlyRate > 0 {
		return us[0].HourlyRate, nil
	}
	return s.rate, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
