package interview

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

type QuestionFilter struct {
	Category   string
	Difficulty Difficulty
	Query      string
}

func (r *Repo) CreateQuestion(ctx context.Context, q *Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *Repo) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q Question
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions returns the user's questions, newest first.
func (r *Repo) ListQuestions(ctx context.Context, userID uint64, f QuestionFilter) ([]Question, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	var out []Question
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Categories(ctx context.Context, userID uint64) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&Question{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("category ASC").
		Pluck("category", &out).Error
	return out, err
}

func (r *Repo) SaveQuestion(ctx context.Context, q *Question) error {
	return r.db.WithContext(ctx).Save(q).Error
}

// DeleteQuestion removes the question together with any mistake records pointing at it.
func (r *Repo) DeleteQuestion(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&MistakeRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Question{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *Repo) CreateMistake(ctx context.Context, m *MistakeRecord) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) GetMistake(ctx context.Context, id string) (*MistakeRecord, error) {
	var m MistakeRecord
	if err := r.db.WithContext(ctx).Preload("Question").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) MistakeByQuestion(ctx context.Context, userID uint64, questionID string) (*MistakeRecord, error) {
	var m MistakeRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMistakes returns the user's mistake log with questions attached, most recently added first.
func (r *Repo) ListMistakes(ctx context.Context, userID uint64) ([]MistakeRecord, error) {
	var out []MistakeRecord
	err := r.db.WithContext(ctx).
		Preload("Question").
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) DeleteMistake(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&MistakeRecord{}).Error
}

func (r *Repo) IncrementReview(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&MistakeRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"review_count": gorm.Expr("review_count + 1"),
			"updated_at":   time.Now(),
		}).Error
}

func (r *Repo) SetAnalysis(ctx context.Context, id, analysis string) error {
	return r.db.WithContext(ctx).Model(&MistakeRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ai_analysis": analysis,
			"updated_at":  time.Now(),
		}).Error
}
