package events

import (
	"time"

	"github.com/google/uuid"
)

const Producer = "supportchat-backend"

// Routing keys on the topic exchange.
const (
	KeyHandoffRequested = "chat.handoff_requested"
	KeyThreadAssigned   = "chat.thread_assigned"
	KeyThreadReleased   = "chat.thread_released"
)

type Meta struct {
	// Trace / request correlation ID
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID       string    `json:"id"`
	Producer *string   `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
	// Event name and version, e.g. chat.thread_assigned.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// HandoffV1 is the payload of every chat.* event.
type HandoffV1 struct {
	ThreadID            uuid.UUID  `json:"thread_id"`
	ContextType         string     `json:"context_type"`
	ContextID           string     `json:"context_id"`
	State               string     `json:"state"`
	AIProvider          string     `json:"ai_provider"`
	AssignedAdminUserID *uuid.UUID `json:"assigned_admin_user_id,omitempty"`
	ActorUserID         *uuid.UUID `json:"actor_user_id,omitempty"`
	Note                string     `json:"note,omitempty"`
	Version             int64      `json:"version"`
	At                  time.Time  `json:"at"`
}

func NewEnvelope(key string, data any, correlationID string) Envelope {
	producer := Producer
	meta := Meta{
		ID:       uuid.NewString(),
		Producer: &producer,
		Time:     time.Now().UTC(),
		Type:     key + ".v1",
	}
	if correlationID != "" {
		cid := correlationID
		meta.CorrelationID = &cid
	}
	return Envelope{Meta: meta, Data: data}
}
