package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func ParseContextType(s string) (ContextType, error) {
	switch ContextType(strings.ToLower(strings.TrimSpace(s))) {
	case ContextJob:
		return ContextJob, nil
	case ContextRequest:
		return ContextRequest, nil
	default:
		return "", fmt.Errorf("unknown context_type %q", s)
	}
}

func ParseAIProvider(s string) (AIProvider, error) {
	switch AIProvider(strings.ToLower(strings.TrimSpace(s))) {
	case AIProviderAuto:
		return AIProviderAuto, nil
	case AIProviderOpenAI:
		return AIProviderOpenAI, nil
	case AIProviderAnthropic:
		return AIProviderAnthropic, nil
	case AIProviderGrok:
		return AIProviderGrok, nil
	default:
		return "", fmt.Errorf("unknown ai_provider %q", s)
	}
}

// NewThread returns a thread in its initial AI_SERVED state.
func NewThread(contextType ContextType, contextID string, createdBy *uuid.UUID, now time.Time) *ChatThread {
	now = now.UTC().Truncate(time.Millisecond)
	return &ChatThread{
		ID:              uuid.New(),
		ContextType:     contextType,
		ContextID:       contextID,
		HandoffMode:     HandoffModeAI,
		AIProvider:      AIProviderAuto,
		CreatedByUserID: createdBy,
		LastMessageAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RequestAdmin moves an ai thread into the admin queue. It reports false when the
// thread is already in admin mode, in which case nothing changes.
func (t *ChatThread) RequestAdmin(note string, now time.Time) bool {
	if t.HandoffMode == HandoffModeAdmin {
		return false
	}
	t.HandoffMode = HandoffModeAdmin
	t.AssignedAdminUserID = nil
	t.HandoffNote = strings.TrimSpace(note)
	at := now.UTC()
	t.HandoffRequestedAt = &at
	t.touch(now)
	return true
}

// TakeOver assigns adminID and forces admin mode. Repeated takeovers overwrite the assignee.
func (t *ChatThread) TakeOver(adminID uuid.UUID, now time.Time) {
	id := adminID
	t.HandoffMode = HandoffModeAdmin
	t.AssignedAdminUserID = &id
	t.touch(now)
}

// ReleaseToAI clears the assignee and returns the thread to ai mode.
func (t *ChatThread) ReleaseToAI(provider *AIProvider, now time.Time) {
	t.HandoffMode = HandoffModeAI
	t.AssignedAdminUserID = nil
	if provider != nil {
		t.AIProvider = *provider
	}
	t.touch(now)
}

// SetAIProvider changes only the provider preference.
func (t *ChatThread) SetAIProvider(provider AIProvider, now time.Time) {
	t.AIProvider = provider
	t.touch(now)
}

// AdvanceForMessage allocates the next seq and a created_at that keeps message
// timestamps non-decreasing in seq order.
func (t *ChatThread) AdvanceForMessage(now time.Time) (int64, time.Time) {
	t.NextSeq++
	at := now.UTC()
	if at.Before(t.LastMessageAt) {
		at = t.LastMessageAt
	}
	t.LastMessageAt = at
	t.UpdatedAt = NextUpdatedAt(t.UpdatedAt, now)
	return t.NextSeq, at
}

// Consistent reports whether an assignee only ever exists in admin mode.
func (t *ChatThread) Consistent() bool {
	return t.AssignedAdminUserID == nil || t.HandoffMode == HandoffModeAdmin
}

func (t *ChatThread) touch(now time.Time) {
	t.Version++
	t.UpdatedAt = NextUpdatedAt(t.UpdatedAt, now)
}

// HandoffColumns is the column set written after a handoff transition.
func (t *ChatThread) HandoffColumns() map[string]interface{} {
	return map[string]interface{}{
		"handoff_mode":           t.HandoffMode,
		"ai_provider":            t.AIProvider,
		"assigned_admin_user_id": t.AssignedAdminUserID,
		"handoff_note":           t.HandoffNote,
		"handoff_requested_at":   t.HandoffRequestedAt,
		"version":                t.Version,
		"updated_at":             t.UpdatedAt,
	}
}

// QueueFilter selects threads for the admin queue.
type QueueFilter string

const (
	QueuePending QueueFilter = "pending"
	QueueServed  QueueFilter = "served"
	QueueAdmin   QueueFilter = "admin"
	QueueAI      QueueFilter = "ai"
	QueueAll     QueueFilter = "all"
)

func ParseQueueFilter(s string) (QueueFilter, error) {
	switch f := QueueFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return QueueAdmin, nil
	case QueuePending, QueueServed, QueueAdmin, QueueAI, QueueAll:
		return f, nil
	default:
		return "", fmt.Errorf("unknown state filter %q", s)
	}
}
