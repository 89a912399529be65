package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/data/repos"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type Repos struct {
	ChatThread      repos.ChatThreadRepo
	ChatMessage     repos.ChatMessageRepo
	ChatParticipant repos.ChatParticipantRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ChatThread:      repos.NewChatThreadRepo(db, log),
		ChatMessage:     repos.NewChatMessageRepo(db, log),
		ChatParticipant: repos.NewChatParticipantRepo(db, log),
	}
}
