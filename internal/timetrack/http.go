package timetrack

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

func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, 404, "not found")
	case errors.Is(err, ErrInvalid):
		writeErr(w, 400, err.Error())
	case errors.Is(err, ErrNotOwner):
		writeErr(w, 403, err.Error())
	case errors.Is(err, ErrTimerRunning), errors.Is(err, ErrNotRunning):
		writeErr(w, 409, err.Error())
	default:
		writeErr(w, 500, err.Error())
	}
}

func currentEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, 401, "unauthorized")
		return "", false
	}
	return u.Email, true
}

// /api/time-entries
func (h *Handler) EntriesRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		es, err := h.svc.List(r.Context(), ListFilter{
			ClientID:  q.Get("client_id"),
			UserEmail: q.Get("user_email"),
			Month:     q.Get("month"),
		})
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, es)

	case http.MethodPost:
		email, ok := currentEmail(w, r)
		if !ok {
			return
		}
		var in LogInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		e, err := h.svc.Log(r.Context(), email, in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 201, e)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/time-entries/{id}[/stop], /api/time-entries/start, /api/time-entries/active
func (h *Handler) EntriesSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/time-entries/"), "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}
	parts := strings.Split(tail, "/")

	email, ok := currentEmail(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "active":
		if r.Method != http.MethodGet {
			writeErr(w, 405, "method not allowed")
			return
		}
		e, err := h.svc.Active(r.Context(), email)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"entry": e})

	case len(parts) == 1 && parts[0] == "start":
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		var in StartInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		e, err := h.svc.Start(r.Context(), email, in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 201, e)

	case len(parts) == 2 && parts[1] == "stop":
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		e, err := h.svc.Stop(r.Context(), email, parts[0])
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, e)

	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			e, err := h.svc.Get(r.Context(), parts[0])
			if err != nil {
				writeServiceErr(w, err)
				return
			}
			writeJSON(w, 200, e)
		case http.MethodDelete:
			if err := h.svc.Delete(r.Context(), email, parts[0]); err != nil {
				writeServiceErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeErr(w, 405, "method not allowed")
		}

	default:
		writeErr(w, 404, "not found")
	}
}
