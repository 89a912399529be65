package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/httpx"
)

const (
	maxProviderAttempts = 3
	providerBackoff     = 500 * time.Millisecond
)

type ProviderConfig struct {
	Name    types.AIProvider
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAICompatProvider talks to any endpoint implementing the OpenAI chat
// completions API (OpenAI itself, xAI, Anthropic's compatibility layer).
type OpenAICompatProvider struct {
	name   types.AIProvider
	model  string
	client *openai.Client
}

func NewOpenAICompatProvider(cfg ProviderConfig, httpClient *http.Client) (*OpenAICompatProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: missing api key", cfg.Name)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s: missing model", cfg.Name)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	return &OpenAICompatProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(oc),
	}, nil
}

func (p *OpenAICompatProvider) Name() string { return string(p.name) }

func (p *OpenAICompatProvider) Reply(ctx context.Context, persona Persona, history []Turn) (Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    buildMessages(persona, history),
		MaxTokens:   persona.MaxTokens,
		Temperature: persona.Temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= maxProviderAttempts; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
				return Reply{}, ErrEmptyReply
			}
			model := resp.Model
			if model == "" {
				model = p.model
			}
			return Reply{
				Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
				Provider: p.Name(),
				Model:    model,
			}, nil
		}
		lastErr = wrapStatus(err)
		if ctx.Err() != nil || !httpx.IsRetryableError(lastErr) || attempt == maxProviderAttempts {
			break
		}
		timer := time.NewTimer(httpx.Backoff(providerBackoff, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Reply{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Reply{}, fmt.Errorf("%s chat completion: %w", p.name, lastErr)
}

func buildMessages(persona Persona, history []Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if persona.SystemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: persona.SystemPrompt})
	}
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		content := t.Text
		switch t.Role {
		case types.SenderAssistant:
			role = openai.ChatMessageRoleAssistant
		case types.SenderAdmin:
			// Human staff turns are context for the model, not its own words.
			content = "[support staff] " + t.Text
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return out
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string       { return e.err.Error() }
func (e *statusError) Unwrap() error       { return e.err }
func (e *statusError) HTTPStatusCode() int { return e.code }

// wrapStatus exposes the HTTP status of go-openai errors to httpx.
func wrapStatus(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{code: apiErr.HTTPStatusCode, err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &statusError{code: reqErr.HTTPStatusCode, err: err}
	}
	return err
}
