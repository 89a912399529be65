package errors

import "errors"

var (
	// ErrValidation marks malformed or empty input; nothing was mutated.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an optimistic-concurrency or uniqueness clash.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks an authenticated caller without access to the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation joins ErrValidation with a human readable reason.
func Validation(msg string) error {
	return errors.Join(ErrValidation, errors.New(msg))
}

// NotFound joins ErrNotFound with a human readable reason.
func NotFound(msg string) error {
	return errors.Join(ErrNotFound, errors.New(msg))
}

// Conflict joins ErrConflict with a human readable reason.
func Conflict(msg string) error {
	return errors.Join(ErrConflict, errors.New(msg))
}

func Forbidden(msg string) error {
	return errors.Join(ErrForbidden, errors.New(msg))
}

func Unauthorized(msg string) error {
	return errors.Join(ErrUnauthorized, errors.New(msg))
}
