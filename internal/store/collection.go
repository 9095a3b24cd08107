package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	fieldID          = "id"
	fieldCreatedDate = "created_date"
	fieldUpdatedDate = "updated_date"

	DefaultSort = "-" + fieldCreatedDate
)

// Query matches documents whose top-level fields equal every given value.
type Query map[string]any

// Collection is a typed view of one named collection. T must round-trip
// through encoding/json and carry "id", "created_date" and "updated_date".
type Collection[T any] struct {
	name    string
	backend Backend
	now     func() time.Time
	newID   func() string
}

func NewCollection[T any](backend Backend, name string) *Collection[T] {
	return &Collection[T]{
		name:    name,
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock swaps the time source used for created/updated stamps.
func (c *Collection[T]) WithClock(now func() time.Time) *Collection[T] {
	c.now = now
	return c
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) List(ctx context.Context, sortBy string) ([]T, error) {
	return c.Filter(ctx, nil, sortBy, 0)
}

// Filter returns matching documents ordered by sortBy ("field" ascending,
// "-field" descending, "" for newest first). limit <= 0 means no limit.
func (c *Collection[T]) Filter(ctx context.Context, q Query, sortBy string, limit int) ([]T, error) {
	bodies, err := c.backend.List(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}

	want, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]any, 0, len(bodies))
	for _, body := range bodies {
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.name, err)
		}
		if matches(doc, want) {
			docs = append(docs, doc)
		}
	}

	sortDocs(docs, sortBy)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := fromDoc[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	body, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return v, nil
}

// Create stores v under a fresh id and returns the stored entity.
func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	doc, err := toDoc(v)
	if err != nil {
		return zero, err
	}

	now := c.stamp()
	id := c.newID()
	doc[fieldID] = id
	doc[fieldCreatedDate] = now
	doc[fieldUpdatedDate] = now

	return c.put(ctx, id, doc)
}

// Update merges patch into the stored document one top-level key at a time.
// A nested value such as "data" replaces the stored value wholesale.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	body, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return zero, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}

	for k, v := range patch {
		switch k {
		case fieldID, fieldCreatedDate, fieldUpdatedDate:
			continue
		}
		doc[k] = v
	}
	doc[fieldUpdatedDate] = c.stamp()

	return c.put(ctx, id, doc)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.backend.Delete(ctx, c.name, id)
}

func (c *Collection[T]) put(ctx context.Context, id string, doc map[string]any) (T, error) {
	var zero T
	body, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	if err := c.backend.Put(ctx, c.name, id, body); err != nil {
		return zero, fmt.Errorf("put %s/%s: %w", c.name, id, err)
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return v, nil
}

func (c *Collection[T]) stamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func fromDoc[T any](doc map[string]any) (T, error) {
	var v T
	raw, err := json.Marshal(doc)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(raw, &v)
	return v, err
}

// normalizeQuery re-encodes query values so they compare like decoded JSON.
func normalizeQuery(q Query) (map[string]string, error) {
	out := make(map[string]string, len(q))
	for k, v := range q {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode query field %q: %w", k, err)
		}
		out[k] = string(raw)
	}
	return out, nil
}

func matches(doc map[string]any, want map[string]string) bool {
	for k, v := range want {
		raw, err := json.Marshal(doc[k])
		if err != nil || string(raw) != v {
			return false
		}
	}
	return true
}

func sortDocs(docs []map[string]any, sortBy string) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		sortBy = DefaultSort
	}
	desc := strings.HasPrefix(sortBy, "-")
	field := strings.TrimPrefix(sortBy, "-")

	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i][field], docs[j][field])
		if c == 0 {
			ii, _ := docs[i][fieldID].(string)
			jj, _ := docs[j][fieldID].(string)
			return ii < jj
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders nil first, then numbers, bools, timestamps and strings.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmpOrdered(boolInt(x), boolInt(y))
		}
	case string:
		if y, ok := b.(string); ok {
			tx, errX := time.Parse(time.RFC3339Nano, x)
			ty, errY := time.Parse(time.RFC3339Nano, y)
			if errX == nil && errY == nil {
				return tx.Compare(ty)
			}
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[N int | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
