// Provider construction.
//
// Information Hiding:
// - Which concrete provider serves each ProviderType
// - Parameter defaults applied before a client is built
//
// Model names, API keys, and environment lookup belong to the config
// package; this factory only assembles clients from resolved values.

package llm

import (
	"fmt"
	"strings"
)

// ProviderType identifies a supported chat backend.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider (OpenAI-compatible API).
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// String returns the canonical provider name.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// ParseProviderType parses a provider name, accepting common aliases.
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// ProviderConfig holds the resolved parameters for one provider instance.
type ProviderConfig struct {
	APIKey      string
	Model       string
	MaxTokens   uint32
	Temperature float32
}

// NewProvider builds a chat provider from resolved configuration.
// MaxTokens zero defaults to 4096.
func NewProvider(t ProviderType, cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", t)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", t)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	switch t {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", t)
	}
}
