// Package exitcode defines exit codes for the CLI.
package exitcode

import "tasker/internal/taskerr"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, rejected input).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/network/storage error.
	BackendError = 3
)

// ForKind returns the exit code reported for a failure of the given kind.
func ForKind(kind taskerr.Kind) int {
	switch kind {
	case "":
		return Success
	case taskerr.NotFound, taskerr.Conflict:
		return UserError
	case taskerr.Unauthorized:
		return AuthError
	default:
		return BackendError
	}
}

// ForError returns the exit code for err. Unclassified errors are backend
// errors.
func ForError(err error) int {
	return ForKind(taskerr.KindOf(err))
}
