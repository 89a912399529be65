package domain

import "github.com/yungbote/supportchat-backend/internal/domain/chat"

type (
	ChatThread      = chat.ChatThread
	ChatMessage     = chat.ChatMessage
	ChatParticipant = chat.ChatParticipant

	ContextType     = chat.ContextType
	HandoffMode     = chat.HandoffMode
	AIProvider      = chat.AIProvider
	ThreadState     = chat.ThreadState
	SenderRole      = chat.SenderRole
	ParticipantRole = chat.ParticipantRole
	QueueFilter     = chat.QueueFilter
)

const (
	ContextJob     = chat.ContextJob
	ContextRequest = chat.ContextRequest

	HandoffModeAI    = chat.HandoffModeAI
	HandoffModeAdmin = chat.HandoffModeAdmin

	AIProviderAuto      = chat.AIProviderAuto
	AIProviderOpenAI    = chat.AIProviderOpenAI
	AIProviderAnthropic = chat.AIProviderAnthropic
	AIProviderGrok      = chat.AIProviderGrok

	StateAIServed     = chat.StateAIServed
	StateAdminPending = chat.StateAdminPending
	StateAdminServed  = chat.StateAdminServed

	SenderUser      = chat.SenderUser
	SenderAssistant = chat.SenderAssistant
	SenderAdmin     = chat.SenderAdmin

	ParticipantBuyer  = chat.ParticipantBuyer
	ParticipantVendor = chat.ParticipantVendor
	ParticipantAdmin  = chat.ParticipantAdmin

	MaxMessageRunes  = chat.MaxMessageRunes
	MaxClientIDBytes = chat.MaxClientIDBytes
)

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&ChatThread{},
		&ChatParticipant{},
		&ChatMessage{},
	}
}

var (
	NewThread        = chat.NewThread
	NextUpdatedAt    = chat.NextUpdatedAt
	ParseContextType = chat.ParseContextType
	ParseAIProvider  = chat.ParseAIProvider
	ParseQueueFilter = chat.ParseQueueFilter
)
