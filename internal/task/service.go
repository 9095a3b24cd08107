package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/assignment"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/clock"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/date"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/recurrence"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

var (
	ErrInvalid          = errors.New("invalid task")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrNotCompleted     = errors.New("task is not completed")
	ErrSuccessorFailed  = errors.New("could not create next occurrence")
	ErrSubtaskNotFound  = errors.New("subtask not found")
)

type Options struct {
	Clock                      clock.Clock
	Logger                     *zap.Logger
	NotStartedLabel            string
	RollbackOnSuccessorFailure bool
}

type Service struct {
	// mu serializes read-modify-write changes so a double submit of
	// Complete cannot create two successors.
	mu sync.Mutex

	tasks  Repo
	boards BoardLister
	clock  clock.Clock
	logger *zap.Logger

	notStartedLabel string
	rollback        bool
}

func NewService(tasks Repo, boards BoardLister, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.NotStartedLabel) == "" {
		opts.NotStartedLabel = model.StatusNotStarted
	}
	return &Service{
		tasks:           tasks,
		boards:          boards,
		clock:           opts.Clock,
		logger:          opts.Logger,
		notStartedLabel: opts.NotStartedLabel,
		rollback:        opts.RollbackOnSuccessorFailure,
	}
}

type CreateInput struct {
	Title      string           `json:"title"`
	BoardID    string           `json:"board_id"`
	Recurrence model.Recurrence `json:"recurrence"`
	Data       model.Data       `json:"data"`
	OrderIndex int              `json:"order_index"`
}

// Patch is a partial update. nil => no change. Data keys are merged into the
// existing bag; a key set to null is stored as null.
type Patch struct {
	Title      *string           `json:"title,omitempty"`
	BoardID    *string           `json:"board_id,omitempty"`
	Recurrence *model.Recurrence `json:"recurrence,omitempty"`
	OrderIndex *int              `json:"order_index,omitempty"`
	Data       model.Data        `json:"data,omitempty"`
}

type ListFilter struct {
	BoardID string
	// Status:
	//   "" | "all" | "pending" | "done" | "overdue" | "due_today" | "upcoming"
	Status string
}

type CompleteResult struct {
	Task      model.Task  `json:"task"`
	Successor *model.Task `json:"successor,omitempty"`
	Warning   string      `json:"warning,omitempty"`
}

func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	return s.tasks.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if err := validateRecurrence(in.Recurrence); err != nil {
		return model.Task{}, err
	}
	data := in.Data.Clone()
	if err := validateData(data); err != nil {
		return model.Task{}, err
	}
	if strings.TrimSpace(data.String(model.KeyStatus)) == "" {
		data[model.KeyStatus] = s.labelFor(ctx, in.BoardID)
	}
	if in.Recurrence == "" {
		in.Recurrence = model.RecurrenceNone
	}

	return s.tasks.Create(ctx, model.Task{
		Title:      in.Title,
		BoardID:    in.BoardID,
		Recurrence: in.Recurrence,
		Data:       data,
		OrderIndex: in.OrderIndex,
	})
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.tasks.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	patch := map[string]any{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return model.Task{}, fmt.Errorf("%w: title is required", ErrInvalid)
		}
		patch["title"] = title
	}
	if p.BoardID != nil {
		patch["board_id"] = *p.BoardID
	}
	if p.Recurrence != nil {
		if err := validateRecurrence(*p.Recurrence); err != nil {
			return model.Task{}, err
		}
		patch["recurrence"] = *p.Recurrence
	}
	if p.OrderIndex != nil {
		patch["order_index"] = *p.OrderIndex
	}
	if p.Data != nil {
		if err := validateData(p.Data); err != nil {
			return model.Task{}, err
		}
		data := cur.Data.Clone()
		for k, v := range p.Data {
			data[k] = v
		}
		patch["data"] = data
	}
	if len(patch) == 0 {
		return cur, nil
	}
	return s.tasks.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.tasks.Delete(ctx, id)
}

// Complete marks the task done and, for recurring tasks, creates the next
// occurrence. When the next occurrence cannot be stored the completion is
// undone (unless rollback is disabled) so the series is never lost.
func (s *Service) Complete(ctx context.Context, id string) (CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.tasks.Get(ctx, id)
	if err != nil {
		return CompleteResult{}, err
	}
	if recurrence.IsCompleted(cur) {
		return CompleteResult{}, ErrAlreadyCompleted
	}

	res := recurrence.CompleteWith(cur, clock.Today(s.clock), recurrence.Options{
		NotStartedLabel: s.labelFor(ctx, cur.BoardID),
	})
	if res.Warning != "" {
		s.logger.Warn("task_recurrence_unrecognized",
			zap.String("task_id", string(cur.ID)),
			zap.String("recurrence", string(cur.Recurrence)),
		)
	}

	done, err := s.tasks.Update(ctx, id, map[string]any{"data": res.CompletedPatch})
	if err != nil {
		return CompleteResult{}, fmt.Errorf("mark task %s done: %w", id, err)
	}
	out := CompleteResult{Task: done, Warning: res.Warning}
	if res.Successor == nil {
		return out, nil
	}

	next, err := s.tasks.Create(ctx, *res.Successor)
	if err != nil {
		s.logger.Error("task_successor_create_failed",
			zap.String("task_id", id),
			zap.Bool("rollback", s.rollback),
			zap.Error(err),
		)
		if !s.rollback {
			return out, fmt.Errorf("%w: %w", ErrSuccessorFailed, err)
		}
		if _, rbErr := s.tasks.Update(ctx, id, map[string]any{"data": cur.Data}); rbErr != nil {
			s.logger.Error("task_completion_rollback_failed", zap.String("task_id", id), zap.Error(rbErr))
			return out, errors.Join(fmt.Errorf("%w: %w", ErrSuccessorFailed, err), rbErr)
		}
		return CompleteResult{}, fmt.Errorf("%w: %w", ErrSuccessorFailed, err)
	}

	s.logger.Info("task_recurred",
		zap.String("task_id", id),
		zap.String("successor_id", string(next.ID)),
		zap.String("due_date", next.DueDate()),
	)
	out.Successor = &next
	return out, nil
}

// Reopen clears both completion signals. An already created successor stays.
func (s *Service) Reopen(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.tasks.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !recurrence.IsCompleted(cur) {
		return model.Task{}, ErrNotCompleted
	}
	data := cur.Data.Clone()
	data[model.KeyStatus] = s.labelFor(ctx, cur.BoardID)
	data[model.KeyDateCompleted] = nil
	return s.tasks.Update(ctx, id, map[string]any{"data": data})
}

// ToggleSubtask flips the completed flag of one subtask. Other entries and
// unknown keys are stored back untouched.
func (s *Service) ToggleSubtask(ctx context.Context, id, subtaskID string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.tasks.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	subs, found := toggleSubtask(cur.Data[model.KeySubtasks], subtaskID)
	if !found {
		return model.Task{}, ErrSubtaskNotFound
	}
	data := cur.Data.Clone()
	data[model.KeySubtasks] = subs
	return s.tasks.Update(ctx, id, map[string]any{"data": data})
}

func toggleSubtask(raw any, subtaskID string) (any, bool) {
	switch items := raw.(type) {
	case []any:
		out := make([]any, len(items))
		copy(out, items)
		found := false
		for i, item := range out {
			m, ok := item.(map[string]any)
			if !ok || m["id"] != subtaskID {
				continue
			}
			flipped := make(map[string]any, len(m))
			for k, v := range m {
				flipped[k] = v
			}
			done, _ := m["completed"].(bool)
			flipped["completed"] = !done
			out[i] = flipped
			found = true
		}
		return out, found
	case []model.Subtask:
		out := append([]model.Subtask(nil), items...)
		found := false
		for i := range out {
			if out[i].ID == subtaskID {
				out[i].Completed = !out[i].Completed
				found = true
			}
		}
		return out, found
	}
	return raw, false
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]model.Task, error) {
	var (
		ts  []model.Task
		err error
	)
	if f.BoardID != "" {
		ts, err = s.tasks.Filter(ctx, store.Query{"board_id": f.BoardID}, "", 0)
	} else {
		ts, err = s.tasks.List(ctx, "")
	}
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock)
	out := make([]model.Task, 0, len(ts))
	for _, t := range ts {
		if matchesStatus(t, f.Status, today) {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out, nil
}

// ListForUser is List narrowed to tasks assigned to email.
func (s *Service) ListForUser(ctx context.Context, email string, f ListFilter) ([]model.Task, error) {
	ts, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	boards, err := s.boards.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return assignment.FilterTasks(ts, email, assignment.NewBoardIndex(boards)), nil
}

// labelFor prefers the board's own not-started option over the configured one.
func (s *Service) labelFor(ctx context.Context, boardID string) string {
	if boardID == "" || s.boards == nil {
		return s.notStartedLabel
	}
	b, err := s.boards.Get(ctx, boardID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("board_lookup_failed", zap.String("board_id", boardID), zap.Error(err))
		}
		return s.notStartedLabel
	}
	if label := b.NotStartedLabel(); label != model.StatusNotStarted {
		return label
	}
	return s.notStartedLabel
}

func matchesStatus(t model.Task, status string, today date.Date) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "all":
		return true
	case "pending":
		return !recurrence.IsCompleted(t)
	case "done":
		return recurrence.IsCompleted(t)
	case "overdue":
		return recurrence.Due(t, today) == recurrence.DueOverdue
	case "due_today":
		return recurrence.Due(t, today) == recurrence.DueToday
	case "upcoming":
		return recurrence.Due(t, today) == recurrence.DueUpcoming
	default:
		// unknown => treat as "all"
		return true
	}
}

// Sort: board order, then due soonest first (no due date last), then newest.
func sortTasks(ts []model.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].OrderIndex != ts[j].OrderIndex {
			return ts[i].OrderIndex < ts[j].OrderIndex
		}
		di, dj := ts[i].DueDate(), ts[j].DueDate()
		switch {
		case di == "" && dj == "":
			return ts[i].CreatedDate.After(ts[j].CreatedDate)
		case di == "":
			return false
		case dj == "":
			return true
		case di != dj:
			return di < dj
		default:
			return ts[i].CreatedDate.After(ts[j].CreatedDate)
		}
	})
}

func validateRecurrence(r model.Recurrence) error {
	if r.IsNone() {
		return nil
	}
	if _, ok := recurrence.NextDueDate(r, date.Today()); !ok {
		return fmt.Errorf("%w: recurrence must be one of none, daily, weekly, monthly", ErrInvalid)
	}
	return nil
}

func validateData(d model.Data) error {
	if v, ok := d[model.KeyDueDate]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return fmt.Errorf("%w: due_date must be a YYYY-MM-DD string", ErrInvalid)
		}
		if strings.TrimSpace(s) != "" {
			if _, err := date.Parse(s); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalid, err)
			}
		}
	}
	return nil
}
