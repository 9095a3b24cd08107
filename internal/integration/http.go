package integration

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/auth"
)

type Handler struct {
	uploader  *Uploader
	llm       *LLM
	assistant *Assistant
	maxBytes  int64
}

func NewHandler(uploader *Uploader, llm *LLM, assistant *Assistant) *Handler {
	h := &Handler{uploader: uploader, llm: llm, assistant: assistant}
	if uploader != nil {
		h.maxBytes = uploader.maxBytes
	}
	return h
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeIntegrationErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLLMDisabled):
		writeErr(w, 503, err.Error())
	case errors.Is(err, ErrBadPrompt), errors.Is(err, ErrEmptyFile):
		writeErr(w, 400, err.Error())
	case errors.Is(err, ErrTooLarge):
		writeErr(w, 413, err.Error())
	default:
		writeErr(w, 502, err.Error())
	}
}

// POST /api/integrations/upload (multipart field "file")
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	if h.maxBytes > 0 {
		// leave room for the multipart envelope
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, 400, "multipart field \"file\" is required")
		return
	}
	defer f.Close()

	ref, err := h.uploader.Upload(r.Context(), hdr.Filename, f)
	if err != nil {
		writeIntegrationErr(w, err)
		return
	}
	writeJSON(w, 201, ref)
}

// POST /api/integrations/llm
func (h *Handler) InvokeLLM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	var in struct {
		Prompt             string         `json:"prompt"`
		ResponseJSONSchema map[string]any `json:"response_json_schema"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	out, err := h.llm.Invoke(r.Context(), in.Prompt, in.ResponseJSONSchema)
	if err != nil {
		writeIntegrationErr(w, err)
		return
	}
	writeJSON(w, 200, out)
}

// POST /api/assistant/ask
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErr(w, 401, "unauthorized")
		return
	}
	var in struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	ans, err := h.assistant.Ask(r.Context(), u.Email, in.Question)
	if err != nil {
		writeIntegrationErr(w, err)
		return
	}
	writeJSON(w, 200, ans)
}
