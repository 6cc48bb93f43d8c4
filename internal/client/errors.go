package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorID classifies client failures. Values are stable and printed to users.
type ErrorID int

const (
	ErrSystem          ErrorID = 1
	ErrServer          ErrorID = 2
	ErrResponseParse   ErrorID = 3
	ErrInvalidArgs     ErrorID = 4
	ErrImageProcessing ErrorID = 5
)

func (id ErrorID) String() string {
	switch id {
	case ErrSystem:
		return "SYSTEM_ERROR"
	case ErrServer:
		return "SERVER_ERROR"
	case ErrResponseParse:
		return "RESPONSE_PARSE_ERROR"
	case ErrInvalidArgs:
		return "INVALID_ARGS_ERROR"
	case ErrImageProcessing:
		return "IMAGE_PROCESSING_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	ID          ErrorID
	Description string
	// StatusCode is the HTTP status when the server answered, else 0.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("aiaa.error.%d; description: %s", int(e.ID), e.Description)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(id ErrorID, err error, format string, a ...any) *Error {
	return &Error{ID: id, Description: fmt.Sprintf(format, a...), Err: err}
}

// IsNotFound reports whether err means the server has no such model or session.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}
