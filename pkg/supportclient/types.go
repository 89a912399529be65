package supportclient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	ContextType string
	HandoffMode string
	ThreadState string
	SenderRole  string
)

const (
	ContextJob     ContextType = "job"
	ContextRequest ContextType = "request"

	HandoffModeAI    HandoffMode = "ai"
	HandoffModeAdmin HandoffMode = "admin"

	StateAIServed     ThreadState = "AI_SERVED"
	StateAdminPending ThreadState = "ADMIN_PENDING"
	StateAdminServed  ThreadState = "ADMIN_SERVED"

	SenderUser      SenderRole = "user"
	SenderAssistant SenderRole = "assistant"
	SenderAdmin     SenderRole = "admin"
)

type Thread struct {
	ID                  uuid.UUID   `json:"id"`
	ContextType         ContextType `json:"context_type"`
	ContextID           string      `json:"context_id"`
	HandoffMode         HandoffMode `json:"handoff_mode"`
	AIProvider          string      `json:"ai_provider"`
	AssignedAdminUserID *uuid.UUID  `json:"assigned_admin_user_id"`
	HandoffNote         string      `json:"handoff_note,omitempty"`
	HandoffRequestedAt  *time.Time  `json:"handoff_requested_at,omitempty"`
	State               ThreadState `json:"state"`
	NextSeq             int64       `json:"next_seq"`
	Version             int64       `json:"version"`
	LastMessageAt       time.Time   `json:"last_message_at"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Unassigned reports whether the thread waits for an admin to take it.
func (t Thread) Unassigned() bool {
	return t.HandoffMode == HandoffModeAdmin && t.AssignedAdminUserID == nil
}

type Message struct {
	ID           uuid.UUID       `json:"id"`
	ThreadID     uuid.UUID       `json:"thread_id"`
	Seq          int64           `json:"seq"`
	SenderUserID *uuid.UUID      `json:"sender_user_id,omitempty"`
	SenderRole   SenderRole      `json:"sender_role"`
	ClientID     string          `json:"client_id,omitempty"`
	Text         string          `json:"text"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ThreadFilter struct {
	ContextType ContextType
	ContextID   string
	Limit       int
}

// ListMessagesOptions selects one page. BeforeSeq and AfterSeq are mutually
// exclusive; with neither set the newest page is returned.
type ListMessagesOptions struct {
	Limit int
	// BeforeSeq pages backwards.
	BeforeSeq *int64
	// AfterSeq pages forwards from the oldest message past it.
	AfterSeq *int64
}

// QueueState values accepted by ListQueue.
const (
	QueuePending = "pending"
	QueueServed  = "served"
	QueueAdmin   = "admin"
	QueueAI      = "ai"
	QueueAll     = "all"
)

type QueueOptions struct {
	State        string
	AssignedToMe bool
	Limit        int
}

type TakeOverOptions struct {
	AdminUserID *uuid.UUID `json:"admin_user_id,omitempty"`
	// Version rejects the takeover with a ConflictError if the thread moved on.
	Version *int64 `json:"version,omitempty"`
}

type threadEnvelope struct {
	Thread Thread `json:"thread"`
}

type threadsEnvelope struct {
	Items []Thread `json:"items"`
}

type messageEnvelope struct {
	Message Message `json:"message"`
}

type messagesEnvelope struct {
	Items []Message `json:"items"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
