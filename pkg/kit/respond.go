package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the body of gate rejections (401, 403).
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// MessageResponse is the body produced for handler failures.
type MessageResponse struct {
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

func WriteMessage(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	WriteJSON(w, status, MessageResponse{
		Message:   msg,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
