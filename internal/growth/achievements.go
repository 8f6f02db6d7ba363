package growth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

const (
	defaultRecent = 5
	maxRecent     = 50
)

type UnlockInput struct {
	AchievementID string `json:"achievement_id" binding:"required"`
	Name          string `json:"achievement_name" binding:"required"`
	Icon          string `json:"achievement_icon"`
}

// Unlock records the achievement. Unlocking one the user already has returns
// the original record and created=false.
func (s *Service) Unlock(ctx context.Context, userID uint64, in UnlockInput) (*Achievement, bool, error) {
	id := strings.TrimSpace(in.AchievementID)
	name := strings.TrimSpace(in.Name)
	if id == "" || name == "" {
		return nil, false, common.Invalid("achievement_id and achievement_name are required")
	}
	if len(id) > 64 || utf8.RuneCountInString(name) > 100 {
		return nil, false, common.Invalid("achievement is too long")
	}

	a := &Achievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		AchievementID: id,
		Name:          name,
		Icon:          strings.TrimSpace(in.Icon),
		UnlockedAt:    s.now(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return nil, false, common.FromDB(res.Error, "achievement")
	}
	if res.RowsAffected == 1 {
		s.log.Info("achievement unlocked", zap.Uint64("user_id", userID), zap.String("achievement_id", id))
		return a, true, nil
	}
	existing, err := s.achievement(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Service) achievement(ctx context.Context, userID uint64, achievementID string) (*Achievement, error) {
	var a Achievement
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		First(&a).Error
	if err != nil {
		return nil, common.FromDB(err, "achievement")
	}
	return &a, nil
}

func (s *Service) HasAchievement(ctx context.Context, userID uint64, achievementID string) (bool, error) {
	_, err := s.achievement(ctx, userID, strings.TrimSpace(achievementID))
	if common.IsKind(err, common.KindNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Achievements lists the user's achievements, newest first. A positive limit caps the list.
func (s *Service) Achievements(ctx context.Context, userID uint64, limit int) ([]Achievement, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Achievement
	if err := q.Find(&out).Error; err != nil {
		return nil, common.FromDB(err, "achievement")
	}
	return out, nil
}

func (s *Service) RecentAchievements(ctx context.Context, userID uint64, limit int) ([]Achievement, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	return s.Achievements(ctx, userID, min(limit, maxRecent))
}

