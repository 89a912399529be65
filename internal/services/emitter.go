package services

import (
	"context"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/realtime"
	"github.com/yungbote/supportchat-backend/internal/realtime/bus"
)

type FrameEmitter interface {
	Emit(ctx context.Context, env realtime.Envelope)
}

// HubEmitter delivers to sockets on this node only.
type HubEmitter struct{ Hub *realtime.Hub }

func (e *HubEmitter) Emit(ctx context.Context, env realtime.Envelope) {
	e.Hub.Broadcast(env)
}

// BusEmitter publishes to the bus; each node's forwarder feeds its own Hub.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, env realtime.Envelope) {
	if err := e.Bus.Publish(ctx, env); err != nil && e.Log != nil {
		e.Log.Warn("realtime publish failed", "room", env.Room, "type", env.Frame.Type, "error", err)
	}
}
