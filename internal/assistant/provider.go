package assistant

import (
	"context"
	"errors"

	types "github.com/yungbote/supportchat-backend/internal/domain"
)

var ErrEmptyReply = errors.New("provider returned an empty reply")

// Turn is one message of the conversation as the model sees it.
type Turn struct {
	Role types.SenderRole
	Text string
}

type Reply struct {
	Text     string
	Provider string
	Model    string
}

type Provider interface {
	Name() string
	Reply(ctx context.Context, persona Persona, history []Turn) (Reply, error)
}

// StaticProvider answers with a canned text. It backs threads when no model is configured.
type StaticProvider struct {
	Text string
}

func (p StaticProvider) Name() string { return "static" }

func (p StaticProvider) Reply(_ context.Context, persona Persona, _ []Turn) (Reply, error) {
	text := p.Text
	if text == "" {
		text = persona.FallbackReply
	}
	if text == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Text: text, Provider: p.Name()}, nil
}
