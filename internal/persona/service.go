package persona

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/common"
)

type Service struct {
	repo    *Repo
	catalog *Catalog
}

func NewService(repo *Repo, catalog *Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

func (s *Service) Presets() []Preset { return s.catalog.All() }

type Input struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Avatar       string `json:"avatar"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
	Greeting     string `json:"greeting"`
}

func (s *Service) Create(ctx context.Context, userID uint64, in Input) (*Persona, error) {
	name := strings.TrimSpace(in.Name)
	prompt := strings.TrimSpace(in.SystemPrompt)
	if name == "" || prompt == "" {
		return nil, common.Invalid("name and system_prompt are required")
	}
	p := &Persona{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Role:         orDefault(in.Role, defaultRole),
		Avatar:       orDefault(in.Avatar, defaultAvatar),
		Description:  strings.TrimSpace(in.Description),
		SystemPrompt: prompt,
		Greeting:     strings.TrimSpace(in.Greeting),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, common.FromDB(err, "persona")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uint64) ([]Persona, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "persona")
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID uint64, id string) (*Persona, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, common.FromDB(err, "persona")
	}
	if p.UserID != userID {
		return nil, common.Forbidden("you do not have access to this persona")
	}
	return p, nil
}

type Patch struct {
	Name         common.Optional[string] `json:"name"`
	Role         common.Optional[string] `json:"role"`
	Avatar       common.Optional[string] `json:"avatar"`
	Description  common.Optional[string] `json:"description"`
	SystemPrompt common.Optional[string] `json:"system_prompt"`
	Greeting     common.Optional[string] `json:"greeting"`
}

func (s *Service) Update(ctx context.Context, userID uint64, id string, patch Patch) (*Persona, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name.Set {
		if strings.TrimSpace(patch.Name.Value) == "" {
			return nil, common.Invalid("name cannot be empty")
		}
		p.Name = strings.TrimSpace(patch.Name.Value)
	}
	if patch.SystemPrompt.Set {
		if strings.TrimSpace(patch.SystemPrompt.Value) == "" {
			return nil, common.Invalid("system_prompt cannot be empty")
		}
		p.SystemPrompt = strings.TrimSpace(patch.SystemPrompt.Value)
	}
	if patch.Role.Set {
		p.Role = orDefault(patch.Role.Value, defaultRole)
	}
	if patch.Avatar.Set {
		p.Avatar = orDefault(patch.Avatar.Value, defaultAvatar)
	}
	if patch.Description.Set {
		p.Description = strings.TrimSpace(patch.Description.Value)
	}
	if patch.Greeting.Set {
		p.Greeting = strings.TrimSpace(patch.Greeting.Value)
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, common.FromDB(err, "persona")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID uint64, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return common.FromDB(err, "persona")
	}
	return nil
}

// SystemPrompt resolves a preset id, or one of the user's own personas.
func (s *Service) SystemPrompt(ctx context.Context, userID uint64, personaID string) (string, bool) {
	if p, ok := s.catalog.Get(personaID); ok {
		return p.SystemPrompt, true
	}
	p, err := s.repo.Get(ctx, personaID)
	if err != nil || p.UserID != userID {
		return "", false
	}
	return p.SystemPrompt, true
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
