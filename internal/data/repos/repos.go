package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/data/repos/chat"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type ChatThreadRepo = chat.ChatThreadRepo
type ChatMessageRepo = chat.ChatMessageRepo
type ChatParticipantRepo = chat.ChatParticipantRepo

type ThreadListQuery = chat.ThreadListQuery

func NewChatThreadRepo(db *gorm.DB, log *logger.Logger) ChatThreadRepo {
	return chat.NewChatThreadRepo(db, log)
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, log)
}

func NewChatParticipantRepo(db *gorm.DB, log *logger.Logger) ChatParticipantRepo {
	return chat.NewChatParticipantRepo(db, log)
}
