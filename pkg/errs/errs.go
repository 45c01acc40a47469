// Package errs defines the error taxonomy shared across the workflow.
// Services wrap these sentinels with fmt.Errorf("...: %w", ...) and the
// HTTP layer maps them to status codes with errors.Is.
package errs

import "errors"

var (
	// ErrValidation covers malformed input detected before any mutation:
	// missing required answers, insufficient media counts, bad step
	// references.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the caller presented no usable credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller is authenticated but lacks the
	// tenant membership or role the operation requires.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers unknown template/job/submission identifiers.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers illegal state transitions, double reviews and
	// lost conditional-update races. A caller receiving it can assume
	// the operation was already performed (or is impossible), not that
	// the request was malformed.
	ErrConflict = errors.New("conflict")

	// ErrStorage covers blob read/write failures. Database state is
	// unaffected when it is returned; the operation is safe to retry.
	ErrStorage = errors.New("storage failure")
)
