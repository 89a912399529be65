package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domainerrors.Validation("text required"), http.StatusBadRequest, CodeValidation},
		{"not found", domainerrors.NotFound("thread not found"), http.StatusNotFound, CodeThreadNotFound},
		{"conflict", domainerrors.Conflict("stale version"), http.StatusConflict, CodeConflict},
		{"forbidden", domainerrors.Forbidden("no access"), http.StatusForbidden, CodeForbidden},
		{"unauthorized", domainerrors.Unauthorized("no token"), http.StatusUnauthorized, CodeUnauthorized},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
		{"passthrough", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError(tc.err)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.code, got.Code)
		})
	}
	assert.Nil(t, FromError(nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "text required", FromError(domainerrors.Validation("text required")).Message())
	assert.Equal(t, "internal server error", FromError(errors.New("pq: connection refused")).Message())
	assert.Equal(t, "teapot", New(http.StatusTeapot, "teapot", nil).Message())
}
