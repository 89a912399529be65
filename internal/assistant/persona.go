package assistant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona shapes every AI reply: the system prompt, how much history is sent
// and the sampling knobs.
type Persona struct {
	SystemPrompt  string  `yaml:"system_prompt"`
	HistoryLimit  int     `yaml:"history_limit"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float32 `yaml:"temperature"`
	FallbackReply string  `yaml:"fallback_reply"`
}

func DefaultPersona() Persona {
	return Persona{
		SystemPrompt: "You are the support assistant for a cooling-tower manufacturer. " +
			"Answer questions about the customer's job or quote request briefly and factually. " +
			"If you cannot help, suggest asking for a human specialist.",
		HistoryLimit:  20,
		MaxTokens:     400,
		Temperature:   0.3,
		FallbackReply: "Thanks for your message. A specialist will follow up shortly.",
	}
}

// LoadPersona reads a YAML persona file. A missing path yields the defaults;
// fields left empty in the file keep their default values.
func LoadPersona(path string) (Persona, error) {
	p := DefaultPersona()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("failed to read persona: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse persona: %w", err)
	}
	if p.HistoryLimit <= 0 || p.HistoryLimit > 200 {
		p.HistoryLimit = DefaultPersona().HistoryLimit
	}
	return p, nil
}
