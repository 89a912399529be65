package assistant

import (
	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type job struct {
	threadID  uuid.UUID
	messageID uuid.UUID
}

// Queue buffers reply requests between the request path and the Responder.
// It never blocks the caller: when full the request is dropped and the user
// can still reach a human through the handoff.
type Queue struct {
	ch  chan job
	log *logger.Logger
}

func NewQueue(size int, log *logger.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan job, size), log: log.With("component", "AssistantQueue")}
}

func (q *Queue) ScheduleReply(threadID, messageID uuid.UUID) {
	select {
	case q.ch <- job{threadID: threadID, messageID: messageID}:
	default:
		q.log.Warn("assistant queue full, reply dropped", "thread_id", threadID, "message_id", messageID)
	}
}

func (q *Queue) Len() int { return len(q.ch) }
