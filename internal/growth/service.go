package growth

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/plan"
	"github.com/suPer8Hu/codesensei/internal/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	xpPerLevel          = 1000
	maxXPGrant          = 10000
	defaultBoardSize    = 100
	leaderboardCacheTTL = 30 * time.Second
)

type Service struct {
	db    *gorm.DB
	board *cache.Cache
	log   *zap.Logger
	now   func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{
		db:    db,
		board: cache.New(leaderboardCacheTTL, time.Minute),
		log:   log,
		now:   time.Now,
	}
}

func levelFor(xp int64) int {
	return int(xp/xpPerLevel) + 1
}

type Progress struct {
	XP         int64 `json:"xp"`
	Level      int   `json:"level"`
	StreakDays int   `json:"streak_days"`
}

// AddXP grants xp and recomputes the level, which is one more than every full 1000 xp.
func (s *Service) AddXP(ctx context.Context, userID uint64, amount int64) (*Progress, error) {
	if amount <= 0 || amount > maxXPGrant {
		return nil, common.Invalid(fmt.Sprintf("xp must be between 1 and %d", maxXPGrant))
	}
	var u user.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&user.User{}).Where("id = ?", userID).
			Update("xp", gorm.Expr("xp + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.First(&u, userID).Error; err != nil {
			return err
		}
		u.Level = levelFor(u.XP)
		return tx.Model(&user.User{}).Where("id = ?", userID).Update("level", u.Level).Error
	})
	if err != nil {
		return nil, common.FromDB(err, "user")
	}
	s.board.Flush()
	s.log.Debug("xp granted", zap.Uint64("user_id", userID), zap.Int64("amount", amount), zap.Int("level", u.Level))
	return &Progress{XP: u.XP, Level: u.Level, StreakDays: u.StreakDays}, nil
}

func (s *Service) SetStreak(ctx context.Context, userID uint64, days int) (*Progress, error) {
	if days < 0 {
		return nil, common.Invalid("streak_days must not be negative")
	}
	res := s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", userID).Update("streak_days", days)
	if res.Error != nil {
		return nil, common.FromDB(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, common.NotFound("user not found")
	}
	return s.Progress(ctx, userID)
}

func (s *Service) Progress(ctx context.Context, userID uint64) (*Progress, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, common.FromDB(err, "user")
	}
	return &Progress{XP: u.XP, Level: u.Level, StreakDays: u.StreakDays}, nil
}

type LeaderEntry struct {
	Rank     int     `json:"rank"`
	ID       uint64  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name"`
	Image    *string `json:"image"`
	Level    int     `json:"level"`
	XP       int64   `json:"xp"`
}

// Leaderboard ranks users by xp. Results are cached briefly and dropped on every grant.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderEntry, error) {
	if limit <= 0 || limit > defaultBoardSize {
		limit = defaultBoardSize
	}
	key := fmt.Sprintf("top:%d", limit)
	if v, ok := s.board.Get(key); ok {
		return v.([]LeaderEntry), nil
	}

	var users []user.User
	err := s.db.WithContext(ctx).
		Select("id", "username", "name", "image", "level", "xp").
		Order("xp DESC").Order("id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, common.FromDB(err, "user")
	}
	out := make([]LeaderEntry, len(users))
	for i, u := range users {
		out[i] = LeaderEntry{Rank: i + 1, ID: u.ID, Username: u.Username, Name: u.Name, Image: u.Image, Level: u.Level, XP: u.XP}
	}
	s.board.SetDefault(key, out)
	return out, nil
}

type Statistics struct {
	UserID               uint64  `json:"user_id"`
	Username             string  `json:"username"`
	Level                int     `json:"level"`
	XP                   int64   `json:"xp"`
	StreakDays           int     `json:"streak_days"`
	CompletedTasks       int64   `json:"completed_tasks"`
	HoursFocused         float64 `json:"hours_focused"`
	TotalSessions        int64   `json:"total_sessions"`
	TotalMessages        int64   `json:"total_messages"`
	TotalPlans           int64   `json:"total_plans"`
	CompletedPlans       int64   `json:"completed_plans"`
	UnlockedAchievements int64   `json:"unlocked_achievements"`
}

// Statistics aggregates the user's activity. Messages are counted from the
// relational store only.
func (s *Service) Statistics(ctx context.Context, userID uint64) (*Statistics, error) {
	var u user.User
	db := s.db.WithContext(ctx)
	if err := db.First(&u, userID).Error; err != nil {
		return nil, common.FromDB(err, "user")
	}
	st := &Statistics{UserID: u.ID, Username: u.Username, Level: u.Level, XP: u.XP, StreakDays: u.StreakDays}

	counts := []struct {
		dst *int64
		q   *gorm.DB
	}{
		{&st.TotalSessions, db.Model(&chat.Session{}).Where("user_id = ?", userID)},
		{&st.TotalMessages, db.Model(&chat.Message{}).
			Joins("JOIN chat_sessions ON chat_sessions.id = chat_messages.session_id").
			Where("chat_sessions.user_id = ?", userID)},
		{&st.TotalPlans, db.Model(&plan.Plan{}).Where("user_id = ?", userID)},
		{&st.CompletedPlans, db.Model(&plan.Plan{}).Where("user_id = ? AND status = ?", userID, plan.StatusCompleted)},
		{&st.UnlockedAchievements, db.Model(&Achievement{}).Where("user_id = ?", userID)},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, common.FromDB(err, "statistics")
		}
	}
	st.CompletedTasks = st.CompletedPlans

	hours, err := s.TotalFocusHours(ctx, userID)
	if err != nil {
		return nil, err
	}
	st.HoursFocused = hours
	return st, nil
}
