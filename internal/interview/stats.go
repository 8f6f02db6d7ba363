package interview

import (
	"context"
	"math"

	"github.com/suPer8Hu/codesensei/internal/common"
)

type QuestionStats struct {
	Total        int64                `json:"total"`
	ByDifficulty map[Difficulty]int64 `json:"by_difficulty"`
	ByCategory   map[string]int64     `json:"by_category"`
}

type MistakeStats struct {
	QuestionStats
	AverageReviewCount int `json:"average_review_count"`
}

type statRow struct {
	Category   string
	Difficulty Difficulty
	N          int64
	Reviews    int64
}

func (r *Repo) questionRows(ctx context.Context, userID uint64) ([]statRow, error) {
	var out []statRow
	err := r.db.WithContext(ctx).Model(&Question{}).
		Select("category, difficulty, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("category, difficulty").
		Scan(&out).Error
	return out, err
}

func (r *Repo) mistakeRows(ctx context.Context, userID uint64) ([]statRow, error) {
	var out []statRow
	err := r.db.WithContext(ctx).Model(&MistakeRecord{}).
		Select("interview_questions.category AS category, interview_questions.difficulty AS difficulty, "+
			"COUNT(*) AS n, SUM(mistake_records.review_count) AS reviews").
		Joins("JOIN interview_questions ON interview_questions.id = mistake_records.question_id").
		Where("mistake_records.user_id = ?", userID).
		Group("interview_questions.category, interview_questions.difficulty").
		Scan(&out).Error
	return out, err
}

func tally(rows []statRow) QuestionStats {
	st := QuestionStats{ByDifficulty: map[Difficulty]int64{}, ByCategory: map[string]int64{}}
	for _, r := range rows {
		st.Total += r.N
		st.ByDifficulty[r.Difficulty] += r.N
		st.ByCategory[r.Category] += r.N
	}
	return st
}

func (s *Service) QuestionStats(ctx context.Context, userID uint64) (*QuestionStats, error) {
	rows, err := s.repo.questionRows(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "question")
	}
	st := tally(rows)
	return &st, nil
}

// MistakeStats groups the mistake log by its questions. AverageReviewCount is rounded.
func (s *Service) MistakeStats(ctx context.Context, userID uint64) (*MistakeStats, error) {
	rows, err := s.repo.mistakeRows(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "mistake record")
	}
	st := &MistakeStats{QuestionStats: tally(rows)}
	var reviews int64
	for _, r := range rows {
		reviews += r.Reviews
	}
	if st.Total > 0 {
		st.AverageReviewCount = int(math.Round(float64(reviews) / float64(st.Total)))
	}
	return st, nil
}
