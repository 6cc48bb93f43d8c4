package request

import (
	"errors"
	"fmt"

	"aiaa/internal/client"
)

// Kind enumerates why building or dispatching a request failed.
type Kind int

const (
	// KindUsage is a missing or conflicting option; nothing was sent.
	KindUsage Kind = iota + 1
	// KindParse is malformed option syntax (points, ROI); nothing was sent.
	KindParse
	// KindNotFound means no model matched the requested name or label.
	KindNotFound
	// KindTransport covers every failure reported by the client: connection,
	// timeout, server rejection, response parsing, image processing.
	KindTransport
	// KindInference is a non-zero status returned by the inference call.
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	case KindInference:
		return "inference"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by this package.
type Error struct {
	Kind Kind
	Msg  string
	// Status is the inference status code for KindInference.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func usageError(msg string) error { return &Error{Kind: KindUsage, Msg: msg} }

func parseError(err error) error { return &Error{Kind: KindParse, Msg: err.Error(), Err: err} }

func notFoundError(name, label string, cause error) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("Couldn't find a model for name: %s; label: %s", name, label), Err: cause}
}

func transportError(err error) error { return &Error{Kind: KindTransport, Err: err} }

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsUsage reports whether err is a local option error.
func IsUsage(err error) bool { k := KindOf(err); return k == KindUsage || k == KindParse }

// IsNotFound reports whether no model matched.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// ExitCode maps an error to the process exit code: 0 for nil, the status for
// inference failures, -1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindInference {
		return e.Status
	}
	return -1
}

// ClientError returns the client failure behind err, if any.
func ClientError(err error) (*client.Error, bool) {
	var ce *client.Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
