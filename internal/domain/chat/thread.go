package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ContextType string

const (
	ContextJob     ContextType = "job"
	ContextRequest ContextType = "request"
)

type HandoffMode string

const (
	HandoffModeAI    HandoffMode = "ai"
	HandoffModeAdmin HandoffMode = "admin"
)

type AIProvider string

const (
	AIProviderAuto      AIProvider = "auto"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGrok      AIProvider = "grok"
)

// ThreadState is derived from (handoff_mode, assigned_admin_user_id) and never stored.
type ThreadState string

const (
	StateAIServed     ThreadState = "AI_SERVED"
	StateAdminPending ThreadState = "ADMIN_PENDING"
	StateAdminServed  ThreadState = "ADMIN_SERVED"
)

// ChatThread is the single conversation attached to one (context_type, context_id).
type ChatThread struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ContextType ContextType `gorm:"column:context_type;type:text;not null;uniqueIndex:idx_chat_thread_context,priority:1" json:"context_type"`
	ContextID   string      `gorm:"column:context_id;type:text;not null;uniqueIndex:idx_chat_thread_context,priority:2" json:"context_id"`

	HandoffMode         HandoffMode `gorm:"column:handoff_mode;type:text;not null;default:'ai';index" json:"handoff_mode"`
	AIProvider          AIProvider  `gorm:"column:ai_provider;type:text;not null;default:'auto'" json:"ai_provider"`
	AssignedAdminUserID *uuid.UUID  `gorm:"type:uuid;column:assigned_admin_user_id;index" json:"assigned_admin_user_id"`
	CreatedByUserID     *uuid.UUID  `gorm:"type:uuid;column:created_by_user_id;index" json:"created_by_user_id,omitempty"`

	HandoffNote        string     `gorm:"column:handoff_note;type:text;not null;default:''" json:"handoff_note,omitempty"`
	HandoffRequestedAt *time.Time `gorm:"column:handoff_requested_at" json:"handoff_requested_at,omitempty"`

	// Per-thread sequencing and optimistic version.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"next_seq"`
	Version int64 `gorm:"column:version;not null;default:0" json:"version"`

	LastMessageAt time.Time `gorm:"column:last_message_at;not null;index" json:"last_message_at"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;index" json:"updated_at"`
}

func (ChatThread) TableName() string { return "chat_thread" }

func (t *ChatThread) State() ThreadState {
	if t.HandoffMode != HandoffModeAdmin {
		return StateAIServed
	}
	if t.AssignedAdminUserID == nil {
		return StateAdminPending
	}
	return StateAdminServed
}

func (t ChatThread) MarshalJSON() ([]byte, error) {
	type alias ChatThread
	return json.Marshal(struct {
		alias
		State ThreadState `json:"state"`
	}{alias: alias(t), State: t.State()})
}

// NextUpdatedAt returns a millisecond-precision timestamp strictly after prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Millisecond)
	floor := prev.UTC().Truncate(time.Millisecond)
	if !next.After(floor) {
		next = floor.Add(time.Millisecond)
	}
	return next
}
