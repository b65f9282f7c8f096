package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"storyd/internal/infer"
	"storyd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
// Configuration problems are the caller's fault; capability problems mean
// this deployment cannot serve the request; everything else inside a backend
// is a plain server error.
func statusForError(err error) int {
	switch {
	case infer.IsConfig(err):
		return http.StatusBadRequest
	case infer.IsModelNotFound(err):
		return http.StatusNotFound
	case infer.IsNotReady(err):
		return http.StatusConflict
	case infer.IsCapability(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError maps err and writes the payload.
func writeEngineError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusForError(err), err.Error())
}
