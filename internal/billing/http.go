package billing

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Handler struct {
	reports *Reporter
}

func NewHandler(reports *Reporter) *Handler {
	return &Handler{reports: reports}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeReportErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidMonth):
		writeErr(w, 400, err.Error())
	case errors.Is(err, ErrNoRetainer):
		writeErr(w, 404, err.Error())
	default:
		writeErr(w, 500, err.Error())
	}
}

// GET /api/clients/{id}/retainer-summary?month=YYYY-MM
func (h *Handler) RetainerSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	rep, err := h.reports.RetainerSummary(r.Context(), r.PathValue("id"), r.URL.Query().Get("month"))
	if err != nil {
		writeReportErr(w, err)
		return
	}
	writeJSON(w, 200, rep)
}

// GET /api/reports/subcontractors?month=YYYY-MM
func (h *Handler) Subcontractors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	rep, err := h.reports.Subcontractors(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeReportErr(w, err)
		return
	}
	writeJSON(w, 200, rep)
}

// GET /api/reports/monthly?month=YYYY-MM
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	rep, err := h.reports.Monthly(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeReportErr(w, err)
		return
	}
	writeJSON(w, 200, rep)
}
