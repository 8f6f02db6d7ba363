package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/secret"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	repo   *Repo
	cipher *secret.Cipher
	log    *zap.Logger
}

func NewService(repo *Repo, cipher *secret.Cipher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cipher == nil {
		cipher = &secret.Cipher{}
	}
	return &Service{repo: repo, cipher: cipher, log: log}
}

// View is the settings as shown to their owner: credentials decrypted.
type View struct {
	Theme           string      `json:"theme"`
	DefaultProvider string      `json:"api_provider"`
	Providers       ProviderMap `json:"provider_settings"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Get returns the user's settings, creating the defaults on first access.
func (s *Service) Get(ctx context.Context, userID uint64) (*View, error) {
	row, err := s.repo.GetOrCreate(ctx, userID, defaults(userID))
	if err != nil {
		return nil, common.FromDB(err, "settings")
	}
	return s.view(row), nil
}

type UpdateInput struct {
	Theme           *string     `json:"theme"`
	DefaultProvider *string     `json:"api_provider"`
	Providers       ProviderMap `json:"provider_settings"`
}

// Update changes the provided fields only. A non-nil provider map replaces the
// stored one; an entry with an empty api_key keeps the key already stored.
func (s *Service) Update(ctx context.Context, userID uint64, in UpdateInput) (*View, error) {
	row, err := s.repo.GetOrCreate(ctx, userID, defaults(userID))
	if err != nil {
		return nil, common.FromDB(err, "settings")
	}

	if in.Theme != nil {
		switch *in.Theme {
		case ThemeLight, ThemeDark, ThemeSystem:
			row.Theme = *in.Theme
		default:
			return nil, common.Invalid("theme must be one of light, dark, system")
		}
	}
	if in.DefaultProvider != nil {
		p, ok := ai.ParseProvider(*in.DefaultProvider)
		if !ok {
			return nil, common.Invalid("unsupported provider: " + *in.DefaultProvider)
		}
		row.DefaultProvider = string(p)
	}
	if in.Providers != nil {
		stored := row.Providers.Data()
		next := make(ProviderMap, len(in.Providers))
		for name, ps := range in.Providers {
			p, ok := ai.ParseProvider(name)
			if !ok {
				return nil, common.Invalid("unsupported provider: " + name)
			}
			ps.APIKey = strings.TrimSpace(ps.APIKey)
			ps.BaseURL = strings.TrimSpace(ps.BaseURL)
			ps.Model = strings.TrimSpace(ps.Model)
			if ps.APIKey == "" {
				ps.APIKey = stored[string(p)].APIKey
			} else {
				enc, err := s.cipher.Encrypt(ps.APIKey)
				if err != nil {
					return nil, err
				}
				ps.APIKey = enc
			}
			next[string(p)] = ps
		}
		row.Providers = datatypes.NewJSONType(next)
	}

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, common.FromDB(err, "settings")
	}
	return s.view(row), nil
}

// StoredCredentials returns the decrypted entry for provider, or a zero config
// when the user has stored nothing.
func (s *Service) StoredCredentials(ctx context.Context, userID uint64, provider ai.ProviderID) (ai.ProviderConfig, error) {
	out := ai.ProviderConfig{Provider: provider}
	row, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return out, err
	}
	ps, ok := row.Providers.Data()[string(provider)]
	if !ok {
		return out, nil
	}
	out.APIKey = s.cipher.Reveal(ps.APIKey)
	out.BaseURL = ps.BaseURL
	out.Model = ps.Model
	return out, nil
}

func (s *Service) view(row *UserSettings) *View {
	providers := ProviderMap{}
	for name, ps := range row.Providers.Data() {
		ps.APIKey = s.cipher.Reveal(ps.APIKey)
		providers[name] = ps
	}
	return &View{
		Theme:           row.Theme,
		DefaultProvider: row.DefaultProvider,
		Providers:       providers,
		UpdatedAt:       row.UpdatedAt,
	}
}

func defaults(userID uint64) *UserSettings {
	return &UserSettings{
		ID:              uuid.NewString(),
		UserID:          userID,
		Theme:           ThemeLight,
		DefaultProvider: string(ai.DeepSeek),
		Providers:       datatypes.NewJSONType(ProviderMap{}),
	}
}
