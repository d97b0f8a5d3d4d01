package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// Error represents a structured error response.
//
// Detail carries the human-readable message under the key existing
// clients of the ingestion and alert endpoints already parse.
type Error struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeTooLarge       = "payload_too_large"
	ErrCodeUpstream       = "upstream_error"
	ErrCodeUnavailable    = "unavailable"
)

// WriteJSON writes a JSON response with the given status code and payload.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, status int, code, detail string) {
	WriteJSON(w, status, Error{Detail: detail, Code: code})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, detail)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, detail)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, detail)
}

// DecodeJSON decodes the request body into v. It writes the error response
// itself and reports false when the body is unusable: 413 for an oversized
// body, 422 for anything that does not decode.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return false
		}
		writeBadRequest(w, "reading request body: "+err.Error())
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
