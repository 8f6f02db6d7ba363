package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
)

// CredentialSource returns what the user has stored for a provider. Zero fields mean "not stored".
type CredentialSource interface {
	StoredCredentials(ctx context.Context, userID uint64, provider ai.ProviderID) (ai.ProviderConfig, error)
}

// ClientResolver turns a partial provider selection into a ready adapter.
// Each field resolves request value -> stored settings -> environment/built-in default.
type ClientResolver struct {
	source    CredentialSource
	newClient ai.Factory
	log       *zap.Logger
}

func NewClientResolver(source CredentialSource, factory ai.Factory, log *zap.Logger) *ClientResolver {
	if factory == nil {
		factory = ai.NewClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ClientResolver{source: source, newClient: factory, log: log}
}

// ParseProvider maps an empty value to the environment default.
func ParseProvider(raw string) (ai.ProviderID, error) {
	if strings.TrimSpace(raw) == "" {
		return ai.DefaultProvider(), nil
	}
	p, ok := ai.ParseProvider(raw)
	if !ok {
		return "", common.Invalid(fmt.Sprintf("unsupported provider: %s", raw))
	}
	return p, nil
}

// Client resolves want into an adapter. want.Provider must already be parsed.
func (r *ClientResolver) Client(ctx context.Context, userID uint64, want ai.ProviderConfig) (ai.Client, ai.ProviderConfig, error) {
	cfg := ai.ProviderConfig{
		Provider: want.Provider,
		APIKey:   strings.TrimSpace(want.APIKey),
		BaseURL:  strings.TrimSpace(want.BaseURL),
		Model:    strings.TrimSpace(want.Model),
	}

	// A fallback key is only sent to the host it was configured for: a stored key to the
	// stored (or built-in) base URL, an env key to the env (or built-in) base URL.
	requestKey := cfg.APIKey != ""
	requestURL := cfg.BaseURL
	defaults, _ := ai.DefaultsFor(cfg.Provider)

	if r.source != nil && userID != 0 {
		stored, err := r.source.StoredCredentials(ctx, userID, cfg.Provider)
		if err != nil {
			r.log.Warn("load stored credentials failed",
				zap.Uint64("user_id", userID),
				zap.String("provider", string(cfg.Provider)),
				zap.Error(err),
			)
		} else {
			storedURL := stored.BaseURL
			if storedURL == "" {
				storedURL = defaults.BaseURL
			}
			if cfg.APIKey == "" && stored.APIKey != "" &&
				(requestURL == "" || ai.SameBaseURL(requestURL, storedURL)) {
				cfg.APIKey = stored.APIKey
			}
			if cfg.BaseURL == "" {
				cfg.BaseURL = stored.BaseURL
			}
			if cfg.Model == "" {
				cfg.Model = stored.Model
			}
		}
	}
	if cfg.APIKey == "" {
		if key := ai.APIKeyFromEnv(cfg.Provider); key != "" {
			envURL := ai.EnvBaseURL(cfg.Provider)
			switch {
			case cfg.BaseURL == "" && envURL != "":
				cfg.APIKey, cfg.BaseURL = key, envURL
			case cfg.BaseURL != "" && ai.SameBaseURL(cfg.BaseURL, envURL):
				cfg.APIKey = key
			}
		}
	}
	if cfg.APIKey == "" {
		if requestURL != "" && !requestKey {
			return nil, cfg, common.Invalid("apiKey is required when baseUrl is set")
		}
		return nil, cfg, common.Invalid(fmt.Sprintf("%s API key is not configured, add it in settings", cfg.Provider))
	}

	client, err := r.newClient(cfg)
	if err != nil {
		var ce *ai.ConfigError
		if errors.As(err, &ce) {
			return nil, cfg, common.Invalid(ce.Error())
		}
		return nil, cfg, err
	}
	resolved, err := ai.Resolve(cfg)
	if err == nil {
		cfg = resolved
	}
	return client, cfg, nil
}

// ProviderRequest carries the optional per-request provider overrides.
type ProviderRequest struct {
	Provider string `json:"provider" binding:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Model    string `json:"model"`
}

// ClientSource hands out a ready adapter for one-shot completions outside a chat session.
type ClientSource interface {
	ClientFor(ctx context.Context, userID uint64, req ProviderRequest) (ai.Client, ai.ProviderConfig, error)
}

func (r *ClientResolver) ClientFor(ctx context.Context, userID uint64, req ProviderRequest) (ai.Client, ai.ProviderConfig, error) {
	p, err := ParseProvider(req.Provider)
	if err != nil {
		return nil, ai.ProviderConfig{}, err
	}
	return r.Client(ctx, userID, ai.ProviderConfig{
		Provider: p,
		APIKey:   req.APIKey,
		BaseURL:  req.BaseURL,
		Model:    req.Model,
	})
}
