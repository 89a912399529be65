package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/realtime"
)

type captureEmitter struct {
	mu   sync.Mutex
	envs []realtime.Envelope
}

func (e *captureEmitter) Emit(_ context.Context, env realtime.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.envs = append(e.envs, env)
}

func TestChatNotifierRoutesFrames(t *testing.T) {
	emit := &captureEmitter{}
	n := NewChatNotifier(emit)
	th := &types.ChatThread{ID: uuid.New(), HandoffMode: types.HandoffModeAdmin}
	msg := &types.ChatMessage{ID: uuid.New(), ThreadID: th.ID, Seq: 1}

	n.MessageCreated(th, msg)
	n.HandoffRequested(th)
	n.AIMeta(th.ID, msg.ID, "openai", "gpt-4o-mini")

	require.Len(t, emit.envs, 5)
	room := realtime.ThreadRoom(th.ID)

	assert.Equal(t, room, emit.envs[0].Room)
	assert.Equal(t, realtime.FrameMessage, emit.envs[0].Frame.Type)
	assert.Equal(t, realtime.AdminRoom, emit.envs[1].Room)
	assert.Equal(t, realtime.FrameThreadUpdated, emit.envs[1].Frame.Type)

	assert.Equal(t, realtime.FrameHandoffRequested, emit.envs[2].Frame.Type)
	assert.Equal(t, realtime.AdminRoom, emit.envs[3].Room)

	assert.Equal(t, room, emit.envs[4].Room)
	meta, ok := emit.envs[4].Frame.Data.(realtime.AIMetaData)
	require.True(t, ok)
	assert.Equal(t, "openai", meta.Provider)
}

func TestChatNotifierNilSafe(t *testing.T) {
	var n *chatNotifier
	n.ThreadUpdated(&types.ChatThread{})
	NewChatNotifier(nil).MessageCreated(&types.ChatThread{}, &types.ChatMessage{})
}
