package exitcode_test

import (
	"errors"
	"testing"

	"tasker/internal/exitcode"
	"tasker/internal/taskerr"
)

func TestForKind(t *testing.T) {
	tests := map[taskerr.Kind]int{
		"":                   exitcode.Success,
		taskerr.NotFound:     exitcode.UserError,
		taskerr.Conflict:     exitcode.UserError,
		taskerr.Unauthorized: exitcode.AuthError,
		taskerr.Timeout:      exitcode.BackendError,
		taskerr.Unreachable:  exitcode.BackendError,
		taskerr.ServerFault:  exitcode.BackendError,
		taskerr.Corrupt:      exitcode.BackendError,
		taskerr.Cancelled:    exitcode.BackendError,
		taskerr.Unknown:      exitcode.BackendError,
	}
	for kind, want := range tests {
		if got := exitcode.ForKind(kind); got != want {
			t.Errorf("ForKind(%q) = %d, want %d", kind, got, want)
		}
	}
}

func TestForError(t *testing.T) {
	if got := exitcode.ForError(nil); got != exitcode.Success {
		t.Errorf("ForError(nil) = %d", got)
	}
	if got := exitcode.ForError(errors.New("plain")); got != exitcode.BackendError {
		t.Errorf("unclassified error = %d, want backend error", got)
	}
	if got := exitcode.ForError(taskerr.New(taskerr.Invalid, "op", "bad")); got != exitcode.UserError {
		t.Errorf("invalid = %d, want user error", got)
	}
}
