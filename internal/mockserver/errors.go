package mockserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"aiaa/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) StatusCode() int { return e.code }

// ErrModelNotFound is returned when the catalog has no model by that name.
func ErrModelNotFound(name string) error {
	return statusError{code: http.StatusNotFound, msg: "model not found: " + name}
}

// ErrBadRequest marks invalid client input.
func ErrBadRequest(msg string) error { return statusError{code: http.StatusBadRequest, msg: msg} }

// ErrSessionNotFound is returned for unknown or expired session ids.
func ErrSessionNotFound(id string) error {
	return statusError{code: http.StatusNotFound, msg: "session not found: " + id}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps err to its status, defaulting to 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var he HTTPError
	if errors.As(err, &he) {
		writeJSONError(w, he.StatusCode(), he.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}
