package taskerr

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrMalformed marks stored data that could be read but not decoded.
// Storage code wraps it so FromStorage reports Corrupt.
var ErrMalformed = errors.New("malformed stored data")

// FromTransport classifies a failure raised while talking to a remote
// source. Already classified errors pass through unchanged.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if kind, ok := contextKind(err); ok {
		return wrap(kind, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrap(Timeout, op, err)
	}
	if unreachable(err) {
		return wrap(Unreachable, op, err)
	}
	return wrap(Unknown, op, err)
}

// FromStorage classifies a failure raised by local persistent storage.
func FromStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if kind, ok := contextKind(err); ok {
		return wrap(kind, op, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return wrap(NotFound, op, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, ErrMalformed),
		errors.Is(err, io.ErrUnexpectedEOF):
		return wrap(Corrupt, op, err)
	}
	return wrap(Unknown, op, err)
}

func contextKind(err error) (Kind, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout, true
	}
	return "", false
}

func unreachable(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var addrErr *net.AddrError
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &addrErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}
	return false
}

func wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}
