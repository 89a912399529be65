package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/supportchat-backend/internal/realtime"
)

// LocalBus delivers envelopes in-process; used when no Redis is configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []func(env realtime.Envelope)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(ctx context.Context, env realtime.Envelope) error {
	b.mu.RLock()
	handlers := append([]func(realtime.Envelope){}, b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(env)
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(env realtime.Envelope)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
