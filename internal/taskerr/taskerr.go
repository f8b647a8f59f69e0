// Package taskerr defines the closed set of failure kinds reported by task
// sources and the repository, and translates raw transport and storage
// failures into them.
package taskerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure. Callers branch only on the kind.
type Kind string

const (
	Unknown      Kind = "unknown"
	Timeout      Kind = "timeout"
	Unreachable  Kind = "unreachable"
	Unauthorized Kind = "unauthorized"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	ServerFault  Kind = "server_fault"
	Cancelled    Kind = "cancelled"
	Corrupt      Kind = "corrupt"

	// Invalid is the same kind as Conflict: a request the other side refused.
	Invalid = Conflict
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{Timeout, Unreachable, Unauthorized, NotFound, Conflict, ServerFault, Cancelled, Corrupt, Unknown}

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "remote list"
	Message string // original message, for logging
	Status  int    // HTTP status when the failure came from a response, else 0
	Err     error  // underlying error, if any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target, so errors.Is(err, taskerr.NotFound) works.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// New returns a classified error with no underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Errorf is like New with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err. A nil error has no kind; an error that was
// never classified is Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Transient reports whether kind describes a connectivity-class failure for
// which a cached read may stand in.
func Transient(kind Kind) bool {
	switch kind {
	case Timeout, Unreachable, ServerFault:
		return true
	default:
		return false
	}
}

// KindForStatus maps an HTTP status code to a kind.
// Codes below 400 map to Unknown because they are not failures.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusNotFound:
		return NotFound
	case status >= 400 && status <= 499:
		return Conflict
	case status >= 500 && status <= 599:
		return ServerFault
	default:
		return Unknown
	}
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(op string, status int, message string) *Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: KindForStatus(status), Op: op, Message: message, Status: status}
}
