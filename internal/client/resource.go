package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

var ErrInvalid = errors.New("invalid entity")

// Resource serves JSON CRUD for one collection under prefix.
type Resource[T any] struct {
	coll    *store.Collection[T]
	prefix  string
	sortBy  string
	filters []string
	// check runs on the full entity before every write.
	check func(ctx context.Context, v *T, id string) error
}

func NewResource[T any](coll *store.Collection[T], prefix string) *Resource[T] {
	return &Resource[T]{coll: coll, prefix: strings.TrimSuffix(prefix, "/")}
}

// WithFilters lists query parameters matched by equality on GET prefix.
func (res *Resource[T]) WithFilters(sortBy string, keys ...string) *Resource[T] {
	res.sortBy = sortBy
	res.filters = keys
	return res
}

func (res *Resource[T]) WithCheck(fn func(ctx context.Context, v *T, id string) error) *Resource[T] {
	res.check = fn
	return res
}

func (res *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	if res.check != nil {
		if err := res.check(ctx, &v, ""); err != nil {
			var zero T
			return zero, err
		}
	}
	return res.coll.Create(ctx, v)
}

// Update applies patch on top of the stored entity, re-checks, then writes.
func (res *Resource[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	cur, err := res.coll.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	merged, err := mergeJSON(cur, patch)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if res.check != nil {
		if err := res.check(ctx, &merged, id); err != nil {
			return zero, err
		}
	}
	doc, err := toMap(merged)
	if err != nil {
		return zero, err
	}
	for k := range doc {
		if _, ok := patch[k]; !ok {
			delete(doc, k)
		}
	}
	return res.coll.Update(ctx, id, doc)
}

func mergeJSON[T any](cur T, patch map[string]any) (T, error) {
	var out T
	doc, err := toMap(cur)
	if err != nil {
		return out, err
	}
	for k, v := range patch {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	err = json.Unmarshal(raw, &doc)
	return doc, err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, 404, "not found")
	case errors.Is(err, ErrInvalid):
		writeErr(w, 400, err.Error())
	default:
		writeErr(w, 500, err.Error())
	}
}

// Root handles {prefix}.
func (res *Resource[T]) Root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := store.Query{}
		for _, k := range res.filters {
			if v := r.URL.Query().Get(k); v != "" {
				q[k] = v
			}
		}
		items, err := res.coll.Filter(r.Context(), q, res.sortBy, 0)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, items)

	case http.MethodPost:
		var in T
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		v, err := res.Create(r.Context(), in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 201, v)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// Sub handles {prefix}/{id}.
func (res *Resource[T]) Sub(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, res.prefix+"/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, 404, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		v, err := res.coll.Get(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, v)

	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		v, err := res.Update(r.Context(), id, patch)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, v)

	case http.MethodDelete:
		if err := res.coll.Delete(r.Context(), id); err != nil {
			writeServiceErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// Register mounts Root and Sub on mux.
func (res *Resource[T]) Register(mux *http.ServeMux) {
	mux.HandleFunc(res.prefix, res.Root)
	mux.HandleFunc(res.prefix+"/", res.Sub)
}
