package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	// RoleSystem is used by in-process workers acting on behalf of the service.
	RoleSystem = "system"
)

// RequestData is the authenticated caller attached by the auth middleware.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        string
}

func (rd *RequestData) IsAdmin() bool {
	return rd != nil && rd.Role == RoleAdmin
}

// IsPrivileged reports whether the caller may act on any thread.
func (rd *RequestData) IsPrivileged() bool {
	return rd != nil && (rd.Role == RoleAdmin || rd.Role == RoleSystem)
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
