package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Owner       string         `json:"owner,omitempty"`
	Rank        int            `json:"rank"`
	Active      bool           `json:"active"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedDate time.Time      `json:"created_date"`
	UpdatedDate time.Time      `json:"updated_date"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fb, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	sb, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "harkflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
		"sqlite": sb,
	}
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := NewCollection[widget](b, "widgets").WithClock(tickingClock())

			created, err := c.Create(ctx, widget{Name: "gear", Rank: 2, Data: map[string]any{"color": "red"}})
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.False(t, created.CreatedDate.IsZero())
			assert.Equal(t, created.CreatedDate, created.UpdatedDate)

			got, err := c.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "gear", got.Name)
			assert.Equal(t, "red", got.Data["color"])

			updated, err := c.Update(ctx, created.ID, map[string]any{
				"rank":         5,
				"data":         map[string]any{"size": "L"},
				"id":           "hijack",
				"created_date": "1999-01-01T00:00:00Z",
			})
			require.NoError(t, err)
			assert.Equal(t, created.ID, updated.ID)
			assert.Equal(t, 5, updated.Rank)
			assert.Equal(t, "gear", updated.Name)
			assert.Equal(t, map[string]any{"size": "L"}, updated.Data)
			assert.True(t, created.CreatedDate.Equal(updated.CreatedDate))
			assert.True(t, updated.UpdatedDate.After(created.UpdatedDate))

			require.NoError(t, c.Delete(ctx, created.ID))
			_, err = c.Get(ctx, created.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, c.Delete(ctx, created.ID), ErrNotFound)
			_, err = c.Update(ctx, created.ID, map[string]any{"rank": 1})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCollection_FilterSortLimit(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := NewCollection[widget](b, "widgets").WithClock(tickingClock())
			for i, owner := range []string{"a", "b", "a", "a"} {
				_, err := c.Create(ctx, widget{Name: fmt.Sprintf("w%d", i), Owner: owner, Rank: 10 - i, Active: i%2 == 0})
				require.NoError(t, err)
			}

			all, err := c.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, "w3", all[0].Name, "default sort is newest first")

			byRank, err := c.List(ctx, "rank")
			require.NoError(t, err)
			assert.Equal(t, "w3", byRank[0].Name)
			assert.Equal(t, "w0", byRank[3].Name)

			mine, err := c.Filter(ctx, Query{"owner": "a"}, "name", 0)
			require.NoError(t, err)
			require.Len(t, mine, 3)
			assert.Equal(t, []string{"w0", "w2", "w3"}, names(mine))

			active, err := c.Filter(ctx, Query{"owner": "a", "active": true}, "-rank", 1)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, "w0", active[0].Name)

			ranked, err := c.Filter(ctx, Query{"rank": 9}, "", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"w1"}, names(ranked))
		})
	}
}

func TestCollection_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	a := NewCollection[widget](b, "a")
	other := NewCollection[widget](b, "b")

	_, err := a.Create(ctx, widget{Name: "x"})
	require.NoError(t, err)

	list, err := other.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1, err := NewFileBackend(dir)
	require.NoError(t, err)
	created, err := NewCollection[widget](b1, "widgets").Create(ctx, widget{Name: "kept"})
	require.NoError(t, err)

	b2, err := NewFileBackend(dir)
	require.NoError(t, err)
	got, err := NewCollection[widget](b2, "widgets").Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues(nil, "a"))
	assert.Equal(t, 1, compareValues(2.0, 1.0))
	assert.Equal(t, -1, compareValues(false, true))
	// RFC 3339 strings compare as instants, not text
	assert.Equal(t, -1, compareValues("2024-01-01T09:00:00.5Z", "2024-01-01T09:00:01Z"))
	assert.Equal(t, 1, compareValues("b", "a"))
}

func names(ws []widget) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Name)
	}
	return out
}

func TestOpen(t *testing.T) {
	b, err := Open("memory", "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open("", t.TempDir(), "")
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open("SQLite", "", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	_, err = Open("postgres", "", "")
	assert.Error(t, err)
}
