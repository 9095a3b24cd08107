package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/auth"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrSubtaskNotFound):
		writeErr(w, 404, err.Error())
	case errors.Is(err, ErrInvalid):
		writeErr(w, 400, err.Error())
	case errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrNotCompleted):
		writeErr(w, 409, err.Error())
	case errors.Is(err, ErrSuccessorFailed):
		writeErr(w, 502, err.Error())
	default:
		writeErr(w, 500, err.Error())
	}
}

func filterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		BoardID: q.Get("board_id"),
		Status:  q.Get("status"),
	}
}

// /api/tasks
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ts, err := h.svc.List(r.Context(), filterFromQuery(r))
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, ts)
		return

	case http.MethodPost:
		var in CreateInput
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		t, err := h.svc.Create(r.Context(), in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 201, t)
		return

	default:
		writeErr(w, 405, "method not allowed")
		return
	}
}

// /api/tasks/mine
func (h *Handler) TasksMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, 401, "unauthorized")
		return
	}
	ts, err := h.svc.ListForUser(r.Context(), u.Email, filterFromQuery(r))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, 200, ts)
}

// /api/tasks/{id}[/complete|/reopen|/ics|/subtasks/{sid}/toggle]
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	tail = strings.Trim(tail, "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}

	parts := strings.Split(tail, "/")
	id := parts[0]

	if len(parts) == 1 && id == "mine" {
		h.TasksMine(w, r)
		return
	}

	// /api/tasks/{id}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			t, err := h.svc.Get(r.Context(), id)
			if err != nil {
				writeServiceErr(w, err)
				return
			}
			writeJSON(w, 200, t)
			return

		case http.MethodPatch:
			var p Patch
			if err := decodeJSON(r, &p); err != nil {
				writeErr(w, 400, "bad json")
				return
			}
			t, err := h.svc.Update(r.Context(), id, p)
			if err != nil {
				writeServiceErr(w, err)
				return
			}
			writeJSON(w, 200, t)
			return

		case http.MethodDelete:
			if err := h.svc.Delete(r.Context(), id); err != nil {
				writeServiceErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return

		default:
			writeErr(w, 405, "method not allowed")
			return
		}
	}

	switch {
	case len(parts) == 2 && parts[1] == "complete":
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		res, err := h.svc.Complete(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, res)

	case len(parts) == 2 && parts[1] == "reopen":
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		t, err := h.svc.Reopen(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)

	case len(parts) == 2 && parts[1] == "ics":
		if r.Method != http.MethodGet {
			writeErr(w, 405, "method not allowed")
			return
		}
		t, err := h.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		body, err := BuildTaskCalendarICS(t, h.svc.clock.Now())
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="task-`+id+`.ics"`)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(body))

	case len(parts) == 4 && parts[1] == "subtasks" && parts[3] == "toggle":
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		t, err := h.svc.ToggleSubtask(r.Context(), id, parts[2])
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)

	default:
		writeErr(w, 404, "not found")
	}
}
