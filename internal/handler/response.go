package handler

// Every response body is JSON except GET /health. Error bodies are
// httpjson.ErrorBody, the same shape the auth middleware writes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/httpjson"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse = httpjson.ErrorBody

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a status code and error body.
//
// Only *apperror.AppError messages reach the client. Anything else may carry
// SQL or file paths, so it is logged and replaced with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		httpjson.WriteError(w, logger, statusFor(err), appErr.Message, apperror.Code(err))
		return
	}

	logger.Error("unhandled error", slog.String("error", err.Error()))
	httpjson.WriteError(w, logger, http.StatusInternalServerError,
		"An internal error occurred", "internal_error")
}

// decodeJSON reads a single JSON object from the request body into dst.
// Oversized bodies, malformed JSON and trailing data are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("", fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "Request body is required")
		default:
			return apperror.ValidationFailed("", "Invalid JSON body")
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("", "Request body must contain a single JSON object")
	}
	return nil
}

// flexString accepts a JSON string or a JSON number and keeps its text.
// Clients send amounts either way. A null decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}
