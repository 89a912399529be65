package app

import (
	"github.com/yungbote/supportchat-backend/internal/http"
	httpMW "github.com/yungbote/supportchat-backend/internal/http/middleware"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.Otel.ServiceName,
		TracingEnabled:   cfg.Otel.Enabled,
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   middleware.Auth,
		ChatHandler:      handlers.Chat,
		AdminChatHandler: handlers.AdminChat,
		RealtimeHandler:  handlers.Realtime,
		HealthHandler:    handlers.Health,
	})
}
