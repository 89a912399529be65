package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/supportchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/supportchat-backend/internal/http/middleware"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthMiddleware *httpMW.AuthMiddleware

	ChatHandler      *httpH.ChatHandler
	AdminChatHandler *httpH.AdminChatHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Chat (end user)
		if cfg.ChatHandler != nil {
			protected.POST("/chat/threads", cfg.ChatHandler.CreateThread)
			protected.GET("/chat/threads", cfg.ChatHandler.ListThreads)
			protected.GET("/chat/threads/:id", cfg.ChatHandler.GetThread)
			protected.GET("/chat/threads/:id/messages", cfg.ChatHandler.ListMessages)
			protected.POST("/chat/threads/:id/messages", cfg.ChatHandler.PostMessage)
			protected.POST("/chat/threads/:id/request-admin", cfg.ChatHandler.RequestAdmin)
			protected.POST("/chat/threads/:id/read", cfg.ChatHandler.MarkRead)
		}

		// Realtime (WebSocket)
		if cfg.RealtimeHandler != nil {
			protected.GET("/chat/threads/:id/ws", cfg.RealtimeHandler.ThreadSocket)
		}
	}

	admin := protected.Group("/admin/chat")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		if cfg.AdminChatHandler != nil {
			admin.GET("/threads", cfg.AdminChatHandler.ListQueue)
			admin.GET("/threads/:id", cfg.AdminChatHandler.GetThread)
			admin.GET("/threads/:id/messages", cfg.AdminChatHandler.ListMessages)
			admin.POST("/threads/:id/messages", cfg.AdminChatHandler.PostMessage)
			admin.POST("/threads/:id/takeover", cfg.AdminChatHandler.TakeOver)
			admin.POST("/threads/:id/release-to-ai", cfg.AdminChatHandler.ReleaseToAI)
			admin.PATCH("/threads/:id/ai-provider", cfg.AdminChatHandler.SetAIProvider)
		}

		if cfg.RealtimeHandler != nil {
			admin.GET("/ws", cfg.RealtimeHandler.AdminQueueSocket)
			admin.GET("/threads/:id/ws", cfg.RealtimeHandler.AdminThreadSocket)
		}
	}

	return r
}
