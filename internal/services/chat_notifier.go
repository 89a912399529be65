package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/realtime"
)

type ChatNotifier interface {
	ThreadUpdated(thread *types.ChatThread)
	HandoffRequested(thread *types.ChatThread)
	MessageCreated(thread *types.ChatThread, msg *types.ChatMessage)
	AIMeta(threadID uuid.UUID, messageID uuid.UUID, provider string, model string)
}

type chatNotifier struct {
	emit FrameEmitter
}

func NewChatNotifier(emit FrameEmitter) ChatNotifier {
	return &chatNotifier{emit: emit}
}

func (n *chatNotifier) ThreadUpdated(thread *types.ChatThread) {
	if n == nil || n.emit == nil || thread == nil {
		return
	}
	frame := realtime.Frame{Type: realtime.FrameThreadUpdated, Data: map[string]any{"thread": thread}}
	n.send(realtime.ThreadRoom(thread.ID), frame)
	n.send(realtime.AdminRoom, frame)
}

func (n *chatNotifier) HandoffRequested(thread *types.ChatThread) {
	if n == nil || n.emit == nil || thread == nil {
		return
	}
	frame := realtime.Frame{Type: realtime.FrameHandoffRequested, Data: map[string]any{"thread": thread}}
	n.send(realtime.ThreadRoom(thread.ID), frame)
	n.send(realtime.AdminRoom, frame)
}

// MessageCreated pushes the message to the thread room and the bumped thread to the queue.
func (n *chatNotifier) MessageCreated(thread *types.ChatThread, msg *types.ChatMessage) {
	if n == nil || n.emit == nil || thread == nil || msg == nil {
		return
	}
	n.send(realtime.ThreadRoom(thread.ID), realtime.Frame{
		Type: realtime.FrameMessage,
		Data: map[string]any{"message": msg},
	})
	n.send(realtime.AdminRoom, realtime.Frame{
		Type: realtime.FrameThreadUpdated,
		Data: map[string]any{"thread": thread},
	})
}

func (n *chatNotifier) AIMeta(threadID uuid.UUID, messageID uuid.UUID, provider string, model string) {
	if n == nil || n.emit == nil || threadID == uuid.Nil {
		return
	}
	n.send(realtime.ThreadRoom(threadID), realtime.Frame{
		Type: realtime.FrameAIMeta,
		Data: realtime.AIMetaData{ThreadID: threadID, MessageID: messageID, Provider: provider, Model: model},
	})
}

func (n *chatNotifier) send(room string, frame realtime.Frame) {
	n.emit.Emit(context.Background(), realtime.Envelope{Room: room, Frame: frame})
}
