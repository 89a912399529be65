package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

const (
	CodeValidation     = "validation_error"
	CodeThreadNotFound = "thread_not_found"
	CodeConflict       = "conflict"
	CodeForbidden      = "forbidden"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the client-facing text: the detail of a joined sentinel error,
// and a fixed text for internal failures.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Status >= http.StatusInternalServerError {
		return "internal server error"
	}
	if e.Err == nil {
		return e.Code
	}
	lines := strings.Split(e.Err.Error(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if msg := strings.TrimSpace(lines[i]); msg != "" {
			return msg
		}
	}
	return e.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps a service error onto its HTTP status and wire code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, domainerrors.ErrValidation):
		return New(http.StatusBadRequest, CodeValidation, err)
	case errors.Is(err, domainerrors.ErrNotFound):
		return New(http.StatusNotFound, CodeThreadNotFound, err)
	case errors.Is(err, domainerrors.ErrConflict):
		return New(http.StatusConflict, CodeConflict, err)
	case errors.Is(err, domainerrors.ErrForbidden):
		return New(http.StatusForbidden, CodeForbidden, err)
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return New(http.StatusUnauthorized, CodeUnauthorized, err)
	default:
		return New(http.StatusInternalServerError, CodeInternal, err)
	}
}
