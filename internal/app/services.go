package app

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/assistant"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
	"github.com/yungbote/supportchat-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Chat      services.ChatService
	Replies   *assistant.Queue
	Responder *assistant.Responder
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	metrics *observability.Metrics,
	emit services.FrameEmitter,
	publisher events.Publisher,
) (Services, error) {
	log.Info("Wiring services...")

	persona, err := assistant.LoadPersona(cfg.Assistant.PersonaPath)
	if err != nil {
		return Services{}, fmt.Errorf("load assistant persona: %w", err)
	}

	authService := services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL)

	replies := assistant.NewQueue(cfg.Assistant.QueueSize, log)
	chatService := services.NewChatService(
		db,
		log,
		clock.New(),
		metrics,
		reposet.ChatThread,
		reposet.ChatMessage,
		reposet.ChatParticipant,
		services.NewChatNotifier(emit),
		publisher,
		replies,
	)

	router := assistant.NewRouterFromConfig(cfg.Assistant, persona.FallbackReply, log)
	if len(router.Configured()) == 0 {
		log.Warn("No AI provider configured; assistant replies use the fallback text")
	}
	responder := assistant.NewResponder(
		replies,
		chatService,
		router,
		persona,
		log,
		metrics,
		cfg.Assistant.Workers,
		cfg.Assistant.ReplyTimeout,
	)

	return Services{
		Auth:      authService,
		Chat:      chatService,
		Replies:   replies,
		Responder: responder,
	}, nil
}
