// Package response writes the JSON envelope shared by every endpoint:
//
//	{"data": ..., "error": {"code", "message", "details"}, "meta": {"requestId", "timestamp", ...}}
//
// Exactly one of data and error is non-null.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Meta is attached to every response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ListMeta adds pagination to Meta for list endpoints.
type ListMeta struct {
	Meta
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Error is the error member of the envelope. Details carries field-level
// validation errors.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope[M any] struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Meta  M      `json:"meta"`
}

// NewMeta stamps the current UTC time. A missing requestID gets a fresh UUID.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return Meta{RequestID: requestID, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func write[M any](w http.ResponseWriter, status int, env envelope[M]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err, "status", status)
	}
}

// Success writes data with the given status.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	write(w, status, envelope[Meta]{Data: data, Meta: NewMeta(requestID)})
}

// SuccessList writes a page of items together with the total count.
func SuccessList(w http.ResponseWriter, status int, data any, total, page, limit int, requestID string) {
	write(w, status, envelope[ListMeta]{
		Data: data,
		Meta: ListMeta{Meta: NewMeta(requestID), Total: total, Page: page, Limit: limit},
	})
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error with a machine-readable code.
func Err(w http.ResponseWriter, status int, code, message, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error carrying details, usually []validation.FieldError.
func ErrWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	write(w, status, envelope[Meta]{
		Error: &Error{Code: code, Message: message, Details: details},
		Meta:  NewMeta(requestID),
	})
}
