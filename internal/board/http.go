package board

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrDuplicateCol), errors.Is(err, ErrUnknownColumn):
		writeErr(w, 400, err.Error())
	case errors.Is(err, ErrHasTasks):
		writeErr(w, 409, err.Error())
	default:
		writeErr(w, 500, err.Error())
	}
}

// /api/boards
func (h *Handler) BoardsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bs, err := h.svc.List(r.Context(), r.URL.Query().Get("client_id"))
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, bs)

	case http.MethodPost:
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		b, err := h.svc.Create(r.Context(), in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 201, b)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/boards/{id}
func (h *Handler) BoardsSub(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/boards/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, 404, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := h.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, b)

	case http.MethodPatch:
		var p Patch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		b, err := h.svc.Update(r.Context(), id, p)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, 200, b)

	case http.MethodDelete:
		if err := h.svc.Delete(r.Context(), id); err != nil {
			writeServiceErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErr(w, 405, "method not allowed")
	}
}
