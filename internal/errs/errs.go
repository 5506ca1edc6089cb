// Package errs defines the client's error taxonomy.
//
// Every failure that leaves a component is an *Error tagged with a Kind. The
// Message field is always safe to show to a user; the wrapped Err carries the
// underlying cause for logs only.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the caller must react to it.
type Kind string

const (
	// KindValidation is a local input problem caught before any network call.
	KindValidation Kind = "validation"
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindAuth is a rejected login attempt.
	KindAuth Kind = "auth"
	// KindUnauthorized means the server rejected a previously issued credential.
	KindUnauthorized Kind = "unauthorized"
	// KindServer covers every other non-2xx response or malformed body.
	KindServer Kind = "server"
)

// Default user-facing messages.
const (
	MsgAuthFailed   = "authentication failed"
	MsgUnauthorized = "Session expired. Please login again."
	MsgUnavailable  = "Unable to process request"
	MsgNetwork      = "Network error. Backend not reachable."
)

// Error is the error type returned by every client component.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrUnauthorized)
// works regardless of message or status.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrAuth         = &Error{Kind: KindAuth}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrServer       = &Error{Kind: KindServer}
)

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Network wraps a transport failure.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

// Auth returns a login rejection. An empty detail falls back to MsgAuthFailed.
func Auth(status int, detail string) *Error {
	if detail == "" {
		detail = MsgAuthFailed
	}
	return &Error{Kind: KindAuth, Message: detail, Status: status}
}

// Unauthorized returns a credential rejection.
func Unauthorized(status int) *Error {
	return &Error{Kind: KindUnauthorized, Message: MsgUnauthorized, Status: status}
}

// Server returns a generic server failure carrying detail as its message.
func Server(status int, detail string, err error) *Error {
	if detail == "" {
		detail = MsgUnavailable
	}
	return &Error{Kind: KindServer, Message: detail, Status: status, Err: err}
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the safe message of err, or fallback when err is not an
// *Error.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
