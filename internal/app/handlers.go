package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/supportchat-backend/internal/http/handlers"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/realtime"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Chat      *httpH.ChatHandler
	AdminChat *httpH.AdminChatHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, serviceset Services, hub *realtime.Hub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Chat:      httpH.NewChatHandler(serviceset.Chat),
		AdminChat: httpH.NewAdminChatHandler(serviceset.Chat),
		Realtime:  httpH.NewRealtimeHandler(log, serviceset.Chat, hub, metrics, cfg.CORSOrigins),
	}
}
