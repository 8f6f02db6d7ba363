package plan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
)

type Service struct {
	repo    *Repo
	clients chat.ClientSource
	log     *zap.Logger
	now     func() time.Time
}

func NewService(repo *Repo, clients chat.ClientSource, log *zap.Logger) *Service {
	return &Service{repo: repo, clients: clients, log: log, now: time.Now}
}

type CreateInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*Plan, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, common.Invalid("title is required")
	}
	status := StatusPending
	if in.Status != "" {
		status = Status(in.Status)
		if !status.Valid() {
			return nil, common.Invalid("invalid status: " + in.Status)
		}
	}
	if err := checkProgress(in.Progress); err != nil {
		return nil, err
	}
	today := s.now().Format(dateLayout)
	start, err := parseDate(in.StartDate, today)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(in.EndDate, start)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, common.Invalid("end_date is before start_date")
	}

	p := &Plan{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    normalizeCategory(in.Category),
		Status:      status,
		Progress:    in.Progress,
		StartDate:   start,
		EndDate:     end,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uint64, status, category, query string) ([]Plan, error) {
	f := Filter{Status: Status(status), Category: Category(category), Query: strings.TrimSpace(query)}
	if f.Status != "" && !f.Status.Valid() {
		return nil, common.Invalid("invalid status: " + status)
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, common.Invalid("invalid category: " + category)
	}
	out, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return out, nil
}

func (s *Service) owned(ctx context.Context, userID uint64, id string) (*Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	if p.UserID != userID {
		return nil, common.Forbidden("you do not have access to this plan")
	}
	return p, nil
}

type Patch struct {
	Title       common.Optional[string] `json:"title"`
	Description common.Optional[string] `json:"description"`
	Category    common.Optional[string] `json:"category"`
	Status      common.Optional[string] `json:"status"`
	Progress    common.Optional[int]    `json:"progress"`
	StartDate   common.Optional[string] `json:"start_date"`
	EndDate     common.Optional[string] `json:"end_date"`
}

func (s *Service) Update(ctx context.Context, userID uint64, id string, patch Patch) (*Plan, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title.Set {
		title := strings.TrimSpace(patch.Title.Value)
		if title == "" {
			return nil, common.Invalid("title cannot be empty")
		}
		p.Title = title
	}
	if patch.Description.Set {
		p.Description = strings.TrimSpace(patch.Description.Value)
	}
	if patch.Category.Set {
		p.Category = normalizeCategory(patch.Category.Value)
	}
	if patch.Status.Set {
		st := Status(patch.Status.Value)
		if !st.Valid() {
			return nil, common.Invalid("invalid status: " + patch.Status.Value)
		}
		p.Status = st
	}
	if patch.Progress.Set {
		if err := checkProgress(patch.Progress.Value); err != nil {
			return nil, err
		}
		p.Progress = patch.Progress.Value
	}
	if patch.StartDate.Set {
		if p.StartDate, err = parseDate(patch.StartDate.Value, p.StartDate); err != nil {
			return nil, err
		}
	}
	if patch.EndDate.Set {
		if p.EndDate, err = parseDate(patch.EndDate.Value, p.EndDate); err != nil {
			return nil, err
		}
	}
	if p.EndDate < p.StartDate {
		return nil, common.Invalid("end_date is before start_date")
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID uint64, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return common.FromDB(err, "plan")
	}
	return nil
}

func checkProgress(v int) error {
	if v < 0 || v > 100 {
		return common.Invalid("progress must be between 0 and 100")
	}
	return nil
}

// parseDate accepts YYYY-MM-DD; an empty value yields fallback.
func parseDate(raw, fallback string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", common.Invalid("dates must be formatted as YYYY-MM-DD")
	}
	return t.Format(dateLayout), nil
}
