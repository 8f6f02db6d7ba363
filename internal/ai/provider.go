package ai

import (
	"context"
	"fmt"
)

// ProviderID names one of the supported upstream providers.
type ProviderID string

const (
	DeepSeek ProviderID = "deepseek"
	Qwen     ProviderID = "qwen"
	Doubao   ProviderID = "doubao"
	OpenAI   ProviderID = "openai"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-agnostic request. Nil sampling fields are left to the upstream default.
type ChatRequest struct {
	Messages     []Message
	SystemPrompt string
	Temperature  *float64
	TopP         *float64
	TopK         *int
	MaxTokens    *int
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ChatResponse struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finishReason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Client is the full adapter capability: unary and streaming chat.
type Client interface {
	Provider
	StreamProvider
}

// ConfigError is returned before any network attempt when a ProviderConfig cannot be used.
type ConfigError struct {
	Provider ProviderID
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// UpstreamError is a non-success answer from the provider. Message is the
// provider's own error message when it sent one.
type UpstreamError struct {
	Provider ProviderID
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string { return e.Message }
