// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// FieldError is one entry of a structured validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationErrors is the 400 response body shape for input-shape failures.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// MessageResponse is the body shape for authorization errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteValidationErrors writes a 400 with the per-field error array.
func WriteValidationErrors(w http.ResponseWriter, fieldErrors ...FieldError) {
	_ = WriteJSON(w, http.StatusBadRequest, ValidationErrors{Errors: fieldErrors})
}

// WriteMessage writes a status with a single message string body.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteUnauthorized writes a 401
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a plain 404. Callers must use this for absent,
// cross-tenant and out-of-scope resources alike.
func WriteNotFound(w http.ResponseWriter) {
	WriteMessage(w, http.StatusNotFound, "not found")
}

// WriteTooManyRequests writes a bare 429.
func WriteTooManyRequests(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
}

// WriteInternalError writes a 500 without echoing internal details.
func WriteInternalError(w http.ResponseWriter) {
	WriteMessage(w, http.StatusInternalServerError, "internal error")
}

// WritePolicyError maps a policy-layer error onto the wire. Rate limits are
// bodyless, 404s carry no detail, everything else carries the reason.
func WritePolicyError(w http.ResponseWriter, err error) {
	var perr *authz.Error
	if !errors.As(err, &perr) {
		WriteInternalError(w)
		return
	}

	status := perr.HTTPStatus()
	switch status {
	case http.StatusTooManyRequests:
		WriteTooManyRequests(w)
	case http.StatusNotFound:
		WriteNotFound(w)
	case http.StatusBadRequest:
		WriteMessage(w, status, perr.Reason)
	default:
		WriteMessage(w, status, perr.Reason)
	}
}
