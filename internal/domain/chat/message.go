package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SenderRole string

const (
	SenderUser      SenderRole = "user"
	SenderAssistant SenderRole = "assistant"
	SenderAdmin     SenderRole = "admin"
)

const (
	MaxMessageRunes  = 8000
	MaxClientIDBytes = 200
)

// ChatMessage rows are append-only.
type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_message_thread_seq,priority:1" json:"thread_id"`
	Seq      int64     `gorm:"column:seq;not null;uniqueIndex:idx_chat_message_thread_seq,priority:2" json:"seq"`

	SenderUserID *uuid.UUID `gorm:"type:uuid;column:sender_user_id;index" json:"sender_user_id,omitempty"`
	SenderRole   SenderRole `gorm:"column:sender_role;type:text;not null" json:"sender_role"`

	// Optional client-generated token; a partial unique index on (thread_id, client_id) dedupes retries.
	ClientID string `gorm:"column:client_id;type:text;not null;default:''" json:"client_id,omitempty"`

	Text     string         `gorm:"column:text;type:text;not null" json:"text"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }
