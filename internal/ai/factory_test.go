package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, ok := ParseProvider(" DeepSeek ")
	assert.True(t, ok)
	assert.Equal(t, DeepSeek, p)

	_, ok = ParseProvider("claude")
	assert.False(t, ok)
}

func TestDefaultProvider_ReadsEnvEachCall(t *testing.T) {
	t.Setenv("DEFAULT_AI_PROVIDER", "")
	assert.Equal(t, DeepSeek, DefaultProvider())

	t.Setenv("DEFAULT_AI_PROVIDER", "qwen")
	assert.Equal(t, Qwen, DefaultProvider())

	t.Setenv("DEFAULT_AI_PROVIDER", "bogus")
	assert.Equal(t, DeepSeek, DefaultProvider())
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("DOUBAO_API_KEY", " dk ")
	assert.Equal(t, "dk", APIKeyFromEnv(Doubao))
	assert.Equal(t, "", APIKeyFromEnv(ProviderID("nope")))
}

func TestResolve_FillsDefaults(t *testing.T) {
	cfg, err := Resolve(ProviderConfig{Provider: Qwen, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://dashscope.aliyuncs.com/compatible-mode/v1", cfg.BaseURL)
	assert.Equal(t, "qwen-max", cfg.Model)

	cfg, err = Resolve(ProviderConfig{Provider: Qwen, APIKey: "k", BaseURL: "http://proxy", Model: "qwen-turbo"})
	require.NoError(t, err)
	assert.Equal(t, "http://proxy", cfg.BaseURL)
	assert.Equal(t, "qwen-turbo", cfg.Model)
}

func TestResolve_Errors(t *testing.T) {
	cases := []struct {
		name   string
		cfg    ProviderConfig
		reason string
	}{
		{"unknown provider", ProviderConfig{Provider: "claude", APIKey: "k"}, "unsupported provider"},
		{"missing key", ProviderConfig{Provider: DeepSeek}, "API key is required"},
		{"openai needs url", ProviderConfig{Provider: OpenAI, APIKey: "k"}, "base URL is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.cfg)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.reason, ce.Reason)
		})
	}
}

func TestNewClient_OpenAIWithURL(t *testing.T) {
	c, err := NewClient(ProviderConfig{Provider: OpenAI, APIKey: "k", BaseURL: "http://localhost:1234/v1"})
	require.NoError(t, err)
	oc, ok := c.(*OpenAICompatible)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", oc.Model)
}
