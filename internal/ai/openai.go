package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const doneSentinel = "[DONE]"

// OpenAICompatible speaks the /chat/completions wire format shared by every supported provider.
type OpenAICompatible struct {
	Provider ProviderID
	BaseURL  string
	APIKey   string
	Model    string
	// ChatTimeout bounds unary calls. Streams are bounded by the caller's context.
	ChatTimeout time.Duration
	Client      *http.Client
}

func NewOpenAICompatible(cfg ProviderConfig) *OpenAICompatible {
	return &OpenAICompatible{
		Provider:    cfg.Provider,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		ChatTimeout: 90 * time.Second,
		Client:      &http.Client{},
	}
}

type openAIMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatReq struct {
	Model       string      `json:"model"`
	Messages    []openAIMsg `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
	TopK        *int        `json:"top_k,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream"`
}

type openAIErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIChatResp struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Choices []struct {
		Message      openAIMsg `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	openAIErrorBody
}

type openAIStreamResp struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	openAIErrorBody
}

func (p *OpenAICompatible) endpoint() string {
	return strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
}

func (p *OpenAICompatible) buildBody(req ChatRequest, stream bool) openAIChatReq {
	msgs := make([]openAIMsg, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openAIMsg{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, openAIMsg{Role: role, Content: m.Content})
	}
	return openAIChatReq{
		Model:       p.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func (p *OpenAICompatible) do(ctx context.Context, body openAIChatReq) (*http.Response, error) {
	if p.Client == nil {
		return nil, errors.New("ai: http client is nil")
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, p.upstreamError(resp)
	}
	return resp, nil
}

func (p *OpenAICompatible) upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	var decoded openAIErrorBody
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
		msg = decoded.Error.Message
	}
	return &UpstreamError{Provider: p.Provider, Status: resp.StatusCode, Message: msg}
}

func (p *OpenAICompatible) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ChatTimeout)
		defer cancel()
	}

	resp, err := p.do(ctx, p.buildBody(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded openAIChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &UpstreamError{Provider: p.Provider, Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, &UpstreamError{Provider: p.Provider, Status: resp.StatusCode, Message: decoded.Error.Message}
	}

	out := &ChatResponse{
		ID:    decoded.ID,
		Model: decoded.Model,
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("chat-%d", time.Now().UnixMilli())
	}
	if out.Model == "" {
		out.Model = p.Model
	}
	if len(decoded.Choices) > 0 {
		out.Content = decoded.Choices[0].Message.Content
		out.FinishReason = decoded.Choices[0].FinishReason
	}
	if decoded.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		}
	}
	return out, nil
}

// StreamChat streams assistant content fragments parsed from the SSE body.
// Lines that are not "data:" lines, or whose payload is not valid JSON, are skipped.
func (p *OpenAICompatible) StreamChat(ctx context.Context, req ChatRequest) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := p.do(ctx, p.buildBody(req, true))
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == doneSentinel {
				return
			}
			var decoded openAIStreamResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				continue
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- &UpstreamError{Provider: p.Provider, Status: resp.StatusCode, Message: decoded.Error.Message}
				return
			}
			if len(decoded.Choices) == 0 {
				continue
			}
			delta := decoded.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case chunks <- delta:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}

		if err := sc.Err(); err != nil {
			errs <- fmt.Errorf("%s: %w", p.Provider, err)
		}
	}()

	return chunks, errs
}
