package assistant

import (
	"net/http"
	"time"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type Config struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1"`

	GrokAPIKey  string `env:"XAI_API_KEY"`
	GrokModel   string `env:"XAI_MODEL" envDefault:"grok-2-latest"`
	GrokBaseURL string `env:"XAI_BASE_URL" envDefault:"https://api.x.ai/v1"`

	Workers      int           `env:"ASSISTANT_WORKERS" envDefault:"4"`
	QueueSize    int           `env:"ASSISTANT_QUEUE_SIZE" envDefault:"256"`
	ReplyTimeout time.Duration `env:"ASSISTANT_REPLY_TIMEOUT" envDefault:"45s"`
	PersonaPath  string        `env:"ASSISTANT_PERSONA_PATH" envDefault:"config/assistant.yaml"`
}

// Router picks the provider for a thread's ai_provider preference.
type Router struct {
	providers map[types.AIProvider]Provider
	order     []types.AIProvider
	fallback  Provider
}

func NewRouter(fallback Provider, providers ...Provider) *Router {
	r := &Router{providers: map[types.AIProvider]Provider{}, fallback: fallback}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := types.AIProvider(p.Name())
		if _, dup := r.providers[name]; dup {
			continue
		}
		r.providers[name] = p
		r.order = append(r.order, name)
	}
	return r
}

// NewRouterFromConfig registers every provider with an API key, in openai,
// anthropic, grok order. Threads always get an answer from the static fallback.
func NewRouterFromConfig(cfg Config, fallbackText string, log *logger.Logger) *Router {
	httpClient := &http.Client{Timeout: cfg.ReplyTimeout}
	candidates := []ProviderConfig{
		{Name: types.AIProviderOpenAI, APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel},
		{Name: types.AIProviderAnthropic, APIKey: cfg.AnthropicAPIKey, BaseURL: cfg.AnthropicBaseURL, Model: cfg.AnthropicModel},
		{Name: types.AIProviderGrok, APIKey: cfg.GrokAPIKey, BaseURL: cfg.GrokBaseURL, Model: cfg.GrokModel},
	}
	var providers []Provider
	for _, pc := range candidates {
		if pc.APIKey == "" {
			continue
		}
		p, err := NewOpenAICompatProvider(pc, httpClient)
		if err != nil {
			log.Warn("AI provider disabled", "ai_provider", pc.Name, "error", err)
			continue
		}
		log.Info("AI provider enabled", "ai_provider", pc.Name, "model", pc.Model)
		providers = append(providers, p)
	}
	return NewRouter(StaticProvider{Text: fallbackText}, providers...)
}

// Resolve honours an explicit preference when that provider is configured;
// auto and unconfigured preferences take the first configured provider.
func (r *Router) Resolve(pref types.AIProvider) Provider {
	if p, ok := r.providers[pref]; ok && pref != types.AIProviderAuto {
		return p
	}
	if len(r.order) > 0 {
		return r.providers[r.order[0]]
	}
	return r.fallback
}

func (r *Router) Configured() []types.AIProvider {
	return append([]types.AIProvider(nil), r.order...)
}
