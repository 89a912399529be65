package chat

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantRole string

const (
	ParticipantBuyer  ParticipantRole = "buyer"
	ParticipantVendor ParticipantRole = "vendor"
	ParticipantAdmin  ParticipantRole = "admin"
)

type ChatParticipant struct {
	ThreadID   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"thread_id"`
	UserID     uuid.UUID       `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Role       ParticipantRole `gorm:"column:role;type:text;not null" json:"role"`
	JoinedAt   time.Time       `gorm:"column:joined_at;not null" json:"joined_at"`
	LastReadAt *time.Time      `gorm:"column:last_read_at" json:"last_read_at,omitempty"`
}

func (ChatParticipant) TableName() string { return "chat_participant" }
