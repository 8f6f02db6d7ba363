package persona

import (
	"context"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/common"
)

const copySuffix = " (copy)"

type SessionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Usage struct {
	InUse        bool         `json:"is_used"`
	SessionCount int          `json:"session_count"`
	Sessions     []SessionRef `json:"sessions"`
}

// Usage reports which of the user's chat sessions run on the persona.
func (s *Service) Usage(ctx context.Context, userID uint64, id string) (*Usage, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	refs, err := s.repo.SessionsUsing(ctx, userID, id)
	if err != nil {
		return nil, common.FromDB(err, "chat session")
	}
	if refs == nil {
		refs = []SessionRef{}
	}
	return &Usage{InUse: len(refs) > 0, SessionCount: len(refs), Sessions: refs}, nil
}

func (s *Service) Duplicate(ctx context.Context, userID uint64, id string) (*Persona, error) {
	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	name := []rune(src.Name)
	if limit := 100 - len([]rune(copySuffix)); len(name) > limit {
		name = name[:limit]
	}
	return s.Create(ctx, userID, Input{
		Name:         string(name) + copySuffix,
		Role:         src.Role,
		Avatar:       src.Avatar,
		Description:  src.Description,
		SystemPrompt: src.SystemPrompt,
		Greeting:     src.Greeting,
	})
}

// Export returns the persona without ids or timestamps, in Import's shape.
func (s *Service) Export(ctx context.Context, userID uint64, id string) (*Input, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &Input{
		Name:         p.Name,
		Role:         p.Role,
		Avatar:       p.Avatar,
		Description:  p.Description,
		SystemPrompt: p.SystemPrompt,
		Greeting:     p.Greeting,
	}, nil
}

// Import is stricter than Create: an exported persona carries every field.
func (s *Service) Import(ctx context.Context, userID uint64, in Input) (*Persona, error) {
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"role", in.Role},
		{"avatar", in.Avatar},
		{"description", in.Description},
		{"system_prompt", in.SystemPrompt},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, common.Invalid("invalid persona data: " + f.name + " is required")
		}
	}
	return s.Create(ctx, userID, in)
}

func (s *Service) Search(ctx context.Context, userID uint64, query string) ([]Persona, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, userID)
	}
	out, err := s.repo.Search(ctx, userID, query)
	if err != nil {
		return nil, common.FromDB(err, "persona")
	}
	return out, nil
}
