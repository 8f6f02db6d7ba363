package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	repo    *Repo
	clients chat.ClientSource
	log     *zap.Logger
}

func NewService(repo *Repo, clients chat.ClientSource, log *zap.Logger) *Service {
	return &Service{repo: repo, clients: clients, log: log}
}

type QuestionInput struct {
	Category    string `json:"category" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

func (s *Service) CreateQuestion(ctx context.Context, userID uint64, in QuestionInput) (*Question, error) {
	category := strings.TrimSpace(in.Category)
	title := strings.TrimSpace(in.Title)
	if category == "" || title == "" {
		return nil, common.Invalid("category and title are required")
	}
	diff := Medium
	if in.Difficulty != "" {
		diff = Difficulty(in.Difficulty)
		if !diff.Valid() {
			return nil, common.Invalid("difficulty must be Easy, Medium or Hard")
		}
	}
	q := &Question{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    category,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Difficulty:  diff,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, common.FromDB(err, "question")
	}
	return q, nil
}

func (s *Service) ListQuestions(ctx context.Context, userID uint64, f QuestionFilter) ([]Question, error) {
	f.Query = strings.TrimSpace(f.Query)
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return nil, common.Invalid("difficulty must be Easy, Medium or Hard")
	}
	out, err := s.repo.ListQuestions(ctx, userID, f)
	if err != nil {
		return nil, common.FromDB(err, "question")
	}
	return out, nil
}

func (s *Service) Categories(ctx context.Context, userID uint64) ([]string, error) {
	out, err := s.repo.Categories(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "question")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *Service) ownedQuestion(ctx context.Context, userID uint64, id string) (*Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, common.FromDB(err, "question")
	}
	if q.UserID != userID {
		return nil, common.Forbidden("you do not have access to this question")
	}
	return q, nil
}

type QuestionPatch struct {
	Category    common.Optional[string] `json:"category"`
	Title       common.Optional[string] `json:"title"`
	Description common.Optional[string] `json:"description"`
	Difficulty  common.Optional[string] `json:"difficulty"`
}

func (s *Service) UpdateQuestion(ctx context.Context, userID uint64, id string, patch QuestionPatch) (*Question, error) {
	q, err := s.ownedQuestion(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Category.Set {
		if q.Category = strings.TrimSpace(patch.Category.Value); q.Category == "" {
			return nil, common.Invalid("category cannot be empty")
		}
	}
	if patch.Title.Set {
		if q.Title = strings.TrimSpace(patch.Title.Value); q.Title == "" {
			return nil, common.Invalid("title cannot be empty")
		}
	}
	if patch.Description.Set {
		q.Description = strings.TrimSpace(patch.Description.Value)
	}
	if patch.Difficulty.Set {
		d := Difficulty(patch.Difficulty.Value)
		if !d.Valid() {
			return nil, common.Invalid("difficulty must be Easy, Medium or Hard")
		}
		q.Difficulty = d
	}
	if err := s.repo.SaveQuestion(ctx, q); err != nil {
		return nil, common.FromDB(err, "question")
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, userID uint64, id string) error {
	if _, err := s.ownedQuestion(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return common.FromDB(err, "question")
	}
	return nil
}

// AddMistake flags one of the user's questions. Flagging it again returns the existing record.
func (s *Service) AddMistake(ctx context.Context, userID uint64, questionID string) (*MistakeRecord, bool, error) {
	q, err := s.ownedQuestion(ctx, userID, questionID)
	if err != nil {
		return nil, false, err
	}
	if m, err := s.repo.MistakeByQuestion(ctx, userID, questionID); err == nil {
		m.Question = q
		return m, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, common.FromDB(err, "mistake record")
	}

	m := &MistakeRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		QuestionID: questionID,
		AddedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateMistake(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := s.repo.MistakeByQuestion(ctx, userID, questionID)
			if gerr == nil {
				existing.Question = q
				return existing, false, nil
			}
		}
		return nil, false, common.FromDB(err, "mistake record")
	}
	m.Question = q
	return m, true, nil
}

func (s *Service) ListMistakes(ctx context.Context, userID uint64) ([]MistakeRecord, error) {
	out, err := s.repo.ListMistakes(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "mistake record")
	}
	return out, nil
}

func (s *Service) ownedMistake(ctx context.Context, userID uint64, id string) (*MistakeRecord, error) {
	m, err := s.repo.GetMistake(ctx, id)
	if err != nil {
		return nil, common.FromDB(err, "mistake record")
	}
	if m.UserID != userID {
		return nil, common.Forbidden("you do not have access to this mistake record")
	}
	return m, nil
}

func (s *Service) DeleteMistake(ctx context.Context, userID uint64, id string) error {
	if _, err := s.ownedMistake(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteMistake(ctx, id); err != nil {
		return common.FromDB(err, "mistake record")
	}
	return nil
}

func (s *Service) Review(ctx context.Context, userID uint64, id string) (*MistakeRecord, error) {
	if _, err := s.ownedMistake(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementReview(ctx, id); err != nil {
		return nil, common.FromDB(err, "mistake record")
	}
	return s.ownedMistake(ctx, userID, id)
}
