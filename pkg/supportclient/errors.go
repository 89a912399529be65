package supportclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response that is not one of the typed errors below.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("support api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("support api: %d: %s", e.Status, e.Message)
}

type ValidationError struct{ APIError }

type NotFoundError struct{ APIError }

type ConflictError struct{ APIError }

// AuthError covers 401 and 403.
type AuthError struct{ APIError }

// TransientNetworkError is a transport failure or a 5xx/429 response. Retrying later may succeed.
type TransientNetworkError struct {
	Status int
	Err    error
}

func (e *TransientNetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("support api: transient failure (%d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("support api: transient failure: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientNetworkError
	return errors.As(err, &target)
}

func statusError(status int, env *errorEnvelope, body string) error {
	base := APIError{Status: status, Message: body}
	if env != nil && env.Error.Message != "" {
		base.Code = env.Error.Code
		base.Message = env.Error.Message
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ValidationError{base}
	case status == http.StatusNotFound:
		return &NotFoundError{base}
	case status == http.StatusConflict:
		return &ConflictError{base}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{base}
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &TransientNetworkError{Status: status, Err: errors.New(base.Message)}
	default:
		return &base
	}
}
