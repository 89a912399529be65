// Package bus fans realtime envelopes out to every API node.
package bus

import (
	"context"

	"github.com/yungbote/supportchat-backend/internal/realtime"
)

// Bus carries envelopes between nodes. Each node runs one forwarder that
// feeds its own Hub, so a publisher sees its own frames through the bus too.
type Bus interface {
	Publish(ctx context.Context, env realtime.Envelope) error
	StartForwarder(ctx context.Context, deliver func(env realtime.Envelope)) error
	Close() error
}
