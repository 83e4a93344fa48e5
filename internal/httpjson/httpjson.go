// Package httpjson writes JSON response bodies. Handlers and the auth
// middleware both answer through it, so an error body has one shape
// wherever it is produced:
//
//	{"error": "Amount is required", "code": "validation_error"}
package httpjson

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the body of every error response. Error is safe to show to
// the user. Code is stable for clients to branch on.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Write sets the content type, then the status, then encodes data. Headers
// set after the first write are silently dropped. A nil data writes no body.
func Write(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// WriteError writes an ErrorBody with the given status.
func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message, code string) {
	Write(w, logger, status, ErrorBody{Error: message, Code: code})
}
