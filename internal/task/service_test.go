package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/clock"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

type fixture struct {
	svc    *Service
	tasks  *store.Collection[model.Task]
	boards *store.Collection[model.Board]
	clock  *clock.Fake
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	b := store.NewMemoryBackend()
	f := fixture{
		tasks:  store.NewCollection[model.Task](b, "tasks"),
		boards: store.NewCollection[model.Board](b, "boards"),
		clock:  clock.NewFake(time.Date(2024, 1, 20, 10, 0, 0, 0, time.Local)),
	}
	core, logs := observer.New(zap.DebugLevel)
	f.logs = logs
	opts.Clock = f.clock
	opts.Logger = zap.New(core)
	f.svc = NewService(f.tasks, f.boards, opts)
	return f
}

// failingCreates lets the first n creates through, then fails.
type failingCreates struct {
	Repo
	n int
}

func (f *failingCreates) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if f.n <= 0 {
		return model.Task{}, errors.New("disk full")
	}
	f.n--
	return f.Repo.Create(ctx, t)
}

// slowGets widens the window between reading a task and writing it back.
type slowGets struct {
	Repo
	delay time.Duration
}

func (s slowGets) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := s.Repo.Get(ctx, id)
	time.Sleep(s.delay)
	return t, err
}

func TestCreate_DefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	created, err := f.svc.Create(ctx, CreateInput{Title: "  Invoice  ", Data: model.Data{"due_date": "2024-02-01"}})
	require.NoError(t, err)
	assert.Equal(t, "Invoice", created.Title)
	assert.Equal(t, model.StatusNotStarted, created.Status())
	assert.Equal(t, model.RecurrenceNone, created.Recurrence)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{Title: " "}},
		{"unknown recurrence", CreateInput{Title: "x", Recurrence: "fortnightly"}},
		{"bad due date", CreateInput{Title: "x", Data: model.Data{"due_date": "soon"}}},
		{"non string due date", CreateInput{Title: "x", Data: model.Data{"due_date": 12}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCreate_UsesBoardStatusLabel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{NotStartedLabel: "Queued"})

	b, err := f.boards.Create(ctx, model.Board{Name: "Ops", Columns: []model.Column{
		{ID: "status", Type: model.ColumnStatus, Options: []string{"To Do", "Doing", "Done"}},
	}})
	require.NoError(t, err)

	onBoard, err := f.svc.Create(ctx, CreateInput{Title: "a", BoardID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, "To Do", onBoard.Status())

	loose, err := f.svc.Create(ctx, CreateInput{Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, "Queued", loose.Status())
}

func TestComplete_RecurringCreatesSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{RollbackOnSuccessorFailure: true})

	orig, err := f.svc.Create(ctx, CreateInput{
		Title:      "Weekly report",
		Recurrence: model.RecurrenceWeekly,
		Data:       model.Data{"due_date": "2024-01-15", "status": "In Progress", "priority": "high"},
	})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, string(orig.ID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, res.Task.Status())
	assert.Equal(t, "2024-01-20", res.Task.Data["date_completed"])
	require.NotNil(t, res.Successor)
	assert.NotEqual(t, orig.ID, res.Successor.ID)
	assert.Equal(t, "2024-01-22", res.Successor.DueDate())
	assert.Equal(t, model.StatusNotStarted, res.Successor.Status())
	assert.Equal(t, "high", res.Successor.Data["priority"])
	assert.Nil(t, res.Successor.Data["date_completed"])

	all, err := f.tasks.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Complete(ctx, string(orig.ID))
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	assert.Equal(t, 1, f.logs.FilterMessage("task_recurred").Len())
}

func TestComplete_OneOffHasNoSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "once"})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, string(orig.ID))
	require.NoError(t, err)
	assert.Nil(t, res.Successor)

	all, err := f.tasks.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestComplete_UnknownRecurrenceLogsWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	// stored before validation existed
	legacy, err := f.tasks.Create(ctx, model.Task{Title: "legacy", Recurrence: "fortnightly", Data: model.Data{}})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, string(legacy.ID))
	require.NoError(t, err)
	assert.Nil(t, res.Successor)
	assert.Contains(t, res.Warning, "fortnightly")
	assert.Equal(t, model.StatusDone, res.Task.Status())

	entries := f.logs.FilterMessage("task_recurrence_unrecognized").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestComplete_SuccessorFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.svc = NewService(&failingCreates{Repo: f.tasks, n: 1}, f.boards, Options{
		Clock:                      f.clock,
		RollbackOnSuccessorFailure: true,
	})

	orig, err := f.svc.Create(ctx, CreateInput{
		Title:      "daily standup",
		Recurrence: model.RecurrenceDaily,
		Data:       model.Data{"status": "In Progress", "due_date": "2024-01-19"},
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, string(orig.ID))
	require.ErrorIs(t, err, ErrSuccessorFailed)

	got, err := f.tasks.Get(ctx, string(orig.ID))
	require.NoError(t, err)
	assert.Equal(t, "In Progress", got.Status())
	assert.NotContains(t, got.Data, "date_completed")

	all, err := f.tasks.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestComplete_SuccessorFailureWithoutRollbackKeepsDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.svc = NewService(&failingCreates{Repo: f.tasks, n: 1}, f.boards, Options{Clock: f.clock})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "d", Recurrence: model.RecurrenceDaily})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, string(orig.ID))
	require.ErrorIs(t, err, ErrSuccessorFailed)

	got, err := f.tasks.Get(ctx, string(orig.ID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status())
}

func TestComplete_NotFound(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Complete(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = f.svc.Reopen(ctx, string(orig.ID))
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = f.svc.Complete(ctx, string(orig.ID))
	require.NoError(t, err)

	back, err := f.svc.Reopen(ctx, string(orig.ID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotStarted, back.Status())
	assert.Nil(t, back.Data["date_completed"])
}

func TestUpdate_MergesData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "x", Data: model.Data{"priority": "low", "work_category": "ops"}})
	require.NoError(t, err)

	title := "renamed"
	rec := model.RecurrenceMonthly
	got, err := f.svc.Update(ctx, string(orig.ID), Patch{
		Title:      &title,
		Recurrence: &rec,
		Data:       model.Data{"priority": "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, model.RecurrenceMonthly, got.Recurrence)
	assert.Equal(t, "high", got.Data["priority"])
	assert.Equal(t, "ops", got.Data["work_category"])

	bad := model.Recurrence("yearly")
	_, err = f.svc.Update(ctx, string(orig.ID), Patch{Recurrence: &bad})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.Update(ctx, "missing", Patch{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleSubtask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "x", Data: model.Data{
		"subtasks": []any{
			map[string]any{"id": "s1", "title": "draft", "completed": false},
			map[string]any{"id": "s2", "title": "send", "completed": false},
		},
	}})
	require.NoError(t, err)

	got, err := f.svc.ToggleSubtask(ctx, string(orig.ID), "s2")
	require.NoError(t, err)
	subs := got.Subtasks()
	require.Len(t, subs, 2)
	assert.False(t, subs[0].Completed)
	assert.True(t, subs[1].Completed)

	_, err = f.svc.ToggleSubtask(ctx, string(orig.ID), "s9")
	assert.ErrorIs(t, err, ErrSubtaskNotFound)
}

func TestComplete_ConcurrentSubmitsCreateOneSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.svc = NewService(slowGets{Repo: f.tasks, delay: 20 * time.Millisecond}, f.boards, Options{
		Clock:                      f.clock,
		RollbackOnSuccessorFailure: true,
	})

	orig, err := f.svc.Create(ctx, CreateInput{
		Title:      "Weekly report",
		Recurrence: model.RecurrenceWeekly,
		Data:       model.Data{"due_date": "2024-01-15"},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(ctx, string(orig.ID))
		}(i)
	}
	wg.Wait()

	ok, already := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyCompleted):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, already)

	all, err := f.tasks.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestToggleSubtask_KeepsUnknownEntriesAndKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	orig, err := f.svc.Create(ctx, CreateInput{Title: "x", Data: model.Data{
		"subtasks": []any{
			map[string]any{"id": "s1", "title": "draft", "completed": false, "assignee": "ann@x.com"},
			"legacy note",
			map[string]any{"id": "s2", "title": "send"},
		},
	}})
	require.NoError(t, err)

	got, err := f.svc.ToggleSubtask(ctx, string(orig.ID), "s1")
	require.NoError(t, err)

	raw, ok := got.Data["subtasks"].([]any)
	require.True(t, ok)
	require.Len(t, raw, 3)
	assert.Equal(t, map[string]any{"id": "s1", "title": "draft", "completed": true, "assignee": "ann@x.com"}, raw[0])
	assert.Equal(t, "legacy note", raw[1])
	assert.Equal(t, map[string]any{"id": "s2", "title": "send"}, raw[2])

	got, err = f.svc.ToggleSubtask(ctx, string(orig.ID), "s2")
	require.NoError(t, err)
	subs := got.Subtasks()
	require.Len(t, subs, 2)
	assert.True(t, subs[1].Completed)
}

func TestList_StatusFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	mk := func(title, due string) model.Task {
		t.Helper()
		created, err := f.svc.Create(ctx, CreateInput{Title: title, BoardID: "b1", Data: model.Data{"due_date": due}})
		require.NoError(t, err)
		return created
	}
	mk("late", "2024-01-19")
	mk("today", "2024-01-20")
	mk("later", "2024-01-25")
	done := mk("finished", "2024-01-10")
	_, err := f.svc.Complete(ctx, string(done.ID))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{Title: "elsewhere", BoardID: "b2"})
	require.NoError(t, err)

	titles := func(status, board string) []string {
		ts, err := f.svc.List(ctx, ListFilter{Status: status, BoardID: board})
		require.NoError(t, err)
		out := []string{}
		for _, tk := range ts {
			out = append(out, tk.Title)
		}
		return out
	}

	assert.Equal(t, []string{"finished", "late", "today", "later"}, titles("", "b1"))
	assert.Equal(t, []string{"late"}, titles("overdue", "b1"))
	assert.Equal(t, []string{"today"}, titles("due_today", ""))
	assert.Equal(t, []string{"later"}, titles("upcoming", ""))
	assert.Equal(t, []string{"finished"}, titles("done", ""))
	assert.Len(t, titles("pending", ""), 4)
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	b, err := f.boards.Create(ctx, model.Board{Name: "Clients", Columns: []model.Column{
		{ID: "owner", Type: model.ColumnPeople},
	}})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{Title: "via column", BoardID: b.ID, Data: model.Data{"owner": []any{"Ann@X.com"}}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{Title: "via assignee", Data: model.Data{"assignee": "ann@x.com"}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{Title: "someone else", Data: model.Data{"assignee": "bo@x.com"}})
	require.NoError(t, err)

	mine, err := f.svc.ListForUser(ctx, "ann@x.com", ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := f.svc.ListForUser(ctx, "", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
