package ai

import (
	"os"
	"strings"
)

type Defaults struct {
	BaseURL     string
	Model       string
	RequiresURL bool
}

var providerDefaults = map[ProviderID]Defaults{
	DeepSeek: {BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	Qwen:     {BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", Model: "qwen-max"},
	Doubao:   {BaseURL: "https://ark.cn-beijing.volces.com/api/v3", Model: "doubao-pro-32k"},
	OpenAI:   {Model: "gpt-4o", RequiresURL: true},
}

var envKeys = map[ProviderID]string{
	DeepSeek: "DEEPSEEK_API_KEY",
	Qwen:     "QWEN_API_KEY",
	Doubao:   "DOUBAO_API_KEY",
	OpenAI:   "OPENAI_API_KEY",
}

var envBaseURLs = map[ProviderID]string{
	DeepSeek: "DEEPSEEK_BASE_URL",
	Qwen:     "QWEN_BASE_URL",
	Doubao:   "DOUBAO_BASE_URL",
	OpenAI:   "OPENAI_BASE_URL",
}

// ProviderConfig selects and authenticates one upstream provider for a single request.
type ProviderConfig struct {
	Provider ProviderID
	APIKey   string
	BaseURL  string
	Model    string
}

// Factory builds a Client for one request. Swapped out in tests.
type Factory func(cfg ProviderConfig) (Client, error)

func ParseProvider(s string) (ProviderID, bool) {
	p := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	_, ok := providerDefaults[p]
	return p, ok
}

func DefaultsFor(p ProviderID) (Defaults, bool) {
	d, ok := providerDefaults[p]
	return d, ok
}

// DefaultProvider reads DEFAULT_AI_PROVIDER on every call, falling back to deepseek.
func DefaultProvider() ProviderID {
	if p, ok := ParseProvider(os.Getenv("DEFAULT_AI_PROVIDER")); ok {
		return p
	}
	return DeepSeek
}

// APIKeyFromEnv reads the provider's fallback key on every call.
func APIKeyFromEnv(p ProviderID) string {
	name, ok := envKeys[p]
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// EnvBaseURL is the only host the provider's env key may be sent to:
// <PROVIDER>_BASE_URL when set, otherwise the built-in default.
func EnvBaseURL(p ProviderID) string {
	if name, ok := envBaseURLs[p]; ok {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return providerDefaults[p].BaseURL
}

// SameBaseURL compares two base URLs ignoring case and trailing slashes.
func SameBaseURL(a, b string) bool {
	norm := func(s string) string { return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "/")) }
	return norm(a) == norm(b)
}

// Resolve fills BaseURL and Model from the provider defaults and validates the result.
func Resolve(cfg ProviderConfig) (ProviderConfig, error) {
	d, ok := providerDefaults[cfg.Provider]
	if !ok {
		return cfg, &ConfigError{Provider: cfg.Provider, Reason: "unsupported provider"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return cfg, &ConfigError{Provider: cfg.Provider, Reason: "API key is required"}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = d.BaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = d.Model
	}
	if cfg.BaseURL == "" {
		return cfg, &ConfigError{Provider: cfg.Provider, Reason: "base URL is required"}
	}
	return cfg, nil
}

// NewClient returns a fresh adapter for cfg. Adapters are not cached between requests.
func NewClient(cfg ProviderConfig) (Client, error) {
	resolved, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return NewOpenAICompatible(resolved), nil
}
