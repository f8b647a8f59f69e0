package commands

import (
	"errors"
	"fmt"
	"io"

	"tasker/internal/exitcode"
	"tasker/internal/taskerr"
)

// reportError prints err in the CLI's error format and returns the exit code
// for its kind.
func reportError(errOut io.Writer, err error) int {
	kind := taskerr.KindOf(err)
	msg := err.Error()
	var e *taskerr.Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}

	switch kind {
	case taskerr.NotFound:
		fmt.Fprintf(errOut, "error: not found: %s\n", msg)
	case taskerr.Conflict:
		fmt.Fprintf(errOut, "error: %s\n", msg)
	case taskerr.Unauthorized:
		fmt.Fprintf(errOut, "error: auth error: %s\n", msg)
	case taskerr.Timeout:
		fmt.Fprintln(errOut, "error: request timed out")
	case taskerr.Cancelled:
		fmt.Fprintln(errOut, "error: cancelled")
	default:
		fmt.Fprintf(errOut, "error: backend error (%s): %s\n", kind, msg)
	}
	return exitcode.ForKind(kind)
}

// usageError prints a usage problem and returns the user error code.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}
