// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Agent     AgentConfig
	Retrieval RetrievalConfig
	Budget    BudgetConfig
	Cache     CacheConfig
	Storage   StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// EmbeddingConfig holds embedding provider configuration.
// Provider may be empty, which disables semantic similarity.
type EmbeddingConfig struct {
	Provider string
	Model    string
}

// AgentConfig holds reasoning loop configuration.
type AgentConfig struct {
	MaxIterations int
	ToolRetries   uint32
	ToolTimeout   uint64
}

// RetrievalConfig holds gateway thresholds.
type RetrievalConfig struct {
	MinGapDays  int
	HighCount   int
	HighSim     float64
	MediumCount int
	MediumSim   float64
}

// BudgetConfig holds the token budget ceiling.
type BudgetConfig struct {
	MaxTokens int
}

// CacheConfig holds result cache tuning.
type CacheConfig struct {
	Threshold int
}

// StorageConfig holds persistence configuration.
// Empty Path selects the in-memory store.
type StorageConfig struct {
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxIterations, err := getEnvInt("AGENT_MAX_ITERATIONS", 10)
	if err != nil {
		return Settings{}, err
	}
	toolRetries, err := getEnvUint32("AGENT_TOOL_RETRIES", 3)
	if err != nil {
		return Settings{}, err
	}
	toolTimeout, err := getEnvUint64("AGENT_TOOL_TIMEOUT_SECS", 30)
	if err != nil {
		return Settings{}, err
	}

	minGapDays, err := getEnvInt("RETRIEVAL_MIN_GAP_DAYS", 7)
	if err != nil {
		return Settings{}, err
	}
	highCount, err := getEnvInt("RETRIEVAL_HIGH_COUNT", 50)
	if err != nil {
		return Settings{}, err
	}
	highSim, err := getEnvFloat64("RETRIEVAL_HIGH_SIM", 0.6)
	if err != nil {
		return Settings{}, err
	}
	mediumCount, err := getEnvInt("RETRIEVAL_MEDIUM_COUNT", 10)
	if err != nil {
		return Settings{}, err
	}
	mediumSim, err := getEnvFloat64("RETRIEVAL_MEDIUM_SIM", 0.4)
	if err != nil {
		return Settings{}, err
	}

	budgetTokens, err := getEnvInt("BUDGET_MAX_TOKENS", 8192)
	if err != nil {
		return Settings{}, err
	}
	cacheThreshold, err := getEnvInt("CACHE_THRESHOLD_BYTES", 4096)
	if err != nil {
		return Settings{}, err
	}

	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Embedding: EmbeddingConfig{
			Provider: os.Getenv("EMBED_PROVIDER"),
			Model:    os.Getenv("EMBED_MODEL"),
		},
		Agent: AgentConfig{
			MaxIterations: maxIterations,
			ToolRetries:   toolRetries,
			ToolTimeout:   toolTimeout,
		},
		Retrieval: RetrievalConfig{
			MinGapDays:  minGapDays,
			HighCount:   highCount,
			HighSim:     highSim,
			MediumCount: mediumCount,
			MediumSim:   mediumSim,
		},
		Budget:  BudgetConfig{MaxTokens: budgetTokens},
		Cache:   CacheConfig{Threshold: cacheThreshold},
		Storage: StorageConfig{Path: os.Getenv("CHRONICA_DB")},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvUint64(key string, defaultVal uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
