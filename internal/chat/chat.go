package chat

import (
	"context"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
)

const defaultTemperature = 0.7

type ChatInput struct {
	SessionID    string       `json:"sessionId"`
	Messages     []ai.Message `json:"messages"`
	SystemPrompt string       `json:"systemPrompt"`
	Provider     string       `json:"provider"`
	Model        string       `json:"model"`
	APIKey       string       `json:"apiKey"`
	BaseURL      string       `json:"baseUrl"`
}

// Prepare validates a chat request and resolves everything needed to call upstream.
// Nothing is persisted and no network call is made here.
func (s *Service) Prepare(ctx context.Context, userID uint64, in ChatInput) (*Turn, error) {
	if userID == 0 {
		return nil, common.Unauthenticated("unauthorized, please log in")
	}
	if len(in.Messages) == 0 {
		return nil, common.Invalid("messages are required")
	}
	provider, err := ParseProvider(in.Provider)
	if err != nil {
		return nil, err
	}

	var sess *Session
	if in.SessionID != "" {
		sess, err = s.OwnedSession(ctx, userID, in.SessionID)
		if err != nil {
			return nil, err
		}
	}

	client, cfg, err := s.clients.Client(ctx, userID, ai.ProviderConfig{
		Provider: provider,
		APIKey:   in.APIKey,
		BaseURL:  in.BaseURL,
		Model:    in.Model,
	})
	if err != nil {
		return nil, err
	}

	turn := &Turn{
		UserID:   userID,
		Provider: provider,
		Model:    cfg.Model,
		Client:   client,
		Request: ai.ChatRequest{
			Messages:     in.Messages,
			SystemPrompt: s.systemPrompt(ctx, userID, sess, in.SystemPrompt),
		},
	}
	applySampling(&turn.Request, sess)

	if sess != nil {
		turn.SessionID = sess.ID
		if last := in.Messages[len(in.Messages)-1]; last.Role == string(RoleUser) {
			turn.UserContent = last.Content
		}
	}
	return turn, nil
}

// Chat runs the non-streaming variant: user turn, one upstream call, model turn.
func (s *Service) Chat(ctx context.Context, turn *Turn) (*ai.ChatResponse, error) {
	log := s.log.With(zap.String("session_id", turn.SessionID), zap.String("provider", string(turn.Provider)))
	s.relay.persistUserTurn(ctx, turn, log)

	resp, err := turn.Client.Chat(ctx, turn.Request)
	if err != nil {
		log.Warn("chat failed", zap.Error(err))
		return nil, common.Upstream(err.Error(), err)
	}

	if turn.SessionID != "" && resp.Content != "" {
		if _, err := s.persist(ctx, turn.SessionID, RoleModel, resp.Content); err != nil {
			log.Error("persist model message failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Stream relays turn to sink. See Relay.Run.
func (s *Service) Stream(ctx context.Context, turn *Turn, sink EventSink) *StreamResult {
	return s.relay.Run(ctx, turn, sink)
}

// systemPrompt picks, in order: the request value, the session override,
// the session's custom persona, then the persona id.
func (s *Service) systemPrompt(ctx context.Context, userID uint64, sess *Session, requested string) string {
	if p := strings.TrimSpace(requested); p != "" {
		return p
	}
	if sess == nil {
		return ""
	}
	if sess.SystemPromptOverride != nil && strings.TrimSpace(*sess.SystemPromptOverride) != "" {
		return *sess.SystemPromptOverride
	}
	if cp := sess.Persona(); cp != nil && strings.TrimSpace(cp.SystemPrompt) != "" {
		return cp.SystemPrompt
	}
	if s.personas != nil && sess.PersonaID != "" {
		if p, ok := s.personas.SystemPrompt(ctx, userID, sess.PersonaID); ok {
			return p
		}
	}
	return ""
}

func applySampling(req *ai.ChatRequest, sess *Session) {
	temp := defaultTemperature
	req.Temperature = &temp
	if sess == nil {
		return
	}
	mp := sess.ModelParams.Data()
	if mp.Temperature != nil {
		t := *mp.Temperature
		req.Temperature = &t
	}
	req.TopK = mp.TopK
	req.MaxTokens = mp.MaxOutputTokens
}
