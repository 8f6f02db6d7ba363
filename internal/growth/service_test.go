package growth

import (
	"context"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/plan"
	"github.com/suPer8Hu/codesensei/internal/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &chat.Session{}, &chat.Message{}, &plan.Plan{}, &Achievement{}, &FocusDay{}))
	svc := NewService(db, zap.NewNop())
	// Wednesday
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) }
	return svc, db
}

func mustUser(t *testing.T, db *gorm.DB, username string) *user.User {
	t.Helper()
	u := &user.User{Email: username + "@example.com", Username: username, PasswordHash: "x", Level: 1}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestAddXP_Levels(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")

	p, err := svc.AddXP(ctx, u.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(999), p.XP)
	assert.Equal(t, 1, p.Level)

	p, err = svc.AddXP(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)

	p, err = svc.AddXP(ctx, u.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), p.XP)
	assert.Equal(t, 4, p.Level)

	_, err = svc.AddXP(ctx, u.ID, 0)
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = svc.AddXP(ctx, u.ID, maxXPGrant+1)
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = svc.AddXP(ctx, 9999, 10)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestSetStreak(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")

	p, err := svc.SetStreak(ctx, u.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, p.StreakDays)

	_, err = svc.SetStreak(ctx, u.ID, -1)
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = svc.SetStreak(ctx, 9999, 1)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestLeaderboard_OrdersAndRefreshesAfterGrant(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	a := mustUser(t, db, "ada")
	b := mustUser(t, db, "bob")
	c := mustUser(t, db, "cyd")
	_, err := svc.AddXP(ctx, a.ID, 300)
	require.NoError(t, err)
	_, err = svc.AddXP(ctx, b.ID, 1200)
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, []string{"bob", "ada", "cyd"}, []string{board[0].Username, board[1].Username, board[2].Username})
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[0].Level)

	top, err := svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = svc.AddXP(ctx, c.ID, 5000)
	require.NoError(t, err)
	board, err = svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "cyd", board[0].Username)
}

func TestUnlock_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")

	first, created, err := svc.Unlock(ctx, u.ID, UnlockInput{AchievementID: "first-chat", Name: "First chat", Icon: "💬"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Unlock(ctx, u.ID, UnlockInput{AchievementID: "first-chat", Name: "renamed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "First chat", again.Name)

	has, err := svc.HasAchievement(ctx, u.ID, "first-chat")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = svc.HasAchievement(ctx, u.ID, "nope")
	require.NoError(t, err)
	assert.False(t, has)

	_, _, err = svc.Unlock(ctx, u.ID, UnlockInput{AchievementID: "x"})
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestRecentAchievements(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")
	base := svc.now()
	for i := range 7 {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, _, err := svc.Unlock(ctx, u.ID, UnlockInput{AchievementID: fmt.Sprintf("a%d", i), Name: "n"})
		require.NoError(t, err)
	}

	recent, err := svc.RecentAchievements(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, defaultRecent)
	assert.Equal(t, "a6", recent[0].AchievementID)

	all, err := svc.Achievements(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestFocus_SetAndAdd(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")

	d, err := svc.SetFocus(ctx, u.ID, "", 2.5)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", d.Date)
	assert.Equal(t, "Wed", d.DayName)

	d, err = svc.AddFocus(ctx, u.ID, "2026-03-04", 1.25)
	require.NoError(t, err)
	assert.InDelta(t, 3.75, d.FocusHours, 1e-9)

	d, err = svc.SetFocus(ctx, u.ID, "2026-03-04", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d.FocusHours, 1e-9)

	_, err = svc.AddFocus(ctx, u.ID, "2026-03-04", 23.5)
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = svc.SetFocus(ctx, u.ID, "2026-03-04", 25)
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = svc.SetFocus(ctx, u.ID, "03/04/2026", 1)
	assert.True(t, common.IsKind(err, common.KindValidation))

	var n int64
	require.NoError(t, db.Model(&FocusDay{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestFocusSummaryAndTrends(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")
	other := mustUser(t, db, "bob")

	for date, h := range map[string]float64{"2026-02-01": 8, "2026-02-27": 1, "2026-03-02": 3, "2026-03-04": 2} {
		_, err := svc.SetFocus(ctx, u.ID, date, h)
		require.NoError(t, err)
	}
	_, err := svc.SetFocus(ctx, other.ID, "2026-03-04", 6)
	require.NoError(t, err)

	week, err := svc.RecentTrends(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, week, 3)
	assert.Equal(t, "2026-02-27", week[0].Date)
	assert.Equal(t, "2026-03-04", week[2].Date)

	sum, err := svc.FocusSummary(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, sum.Days)
	assert.InDelta(t, 6.0, sum.Total, 1e-9)
	assert.InDelta(t, 2.0, sum.Average, 1e-9)
	assert.InDelta(t, 3.0, sum.Max, 1e-9)
	assert.InDelta(t, 1.0, sum.Min, 1e-9)

	total, err := svc.TotalFocusHours(ctx, u.ID)
	require.NoError(t, err)
	assert.InDelta(t, 14.0, total, 1e-9)

	_, err = svc.Trends(ctx, u.ID, "2026-03-04", "2026-03-01")
	assert.True(t, common.IsKind(err, common.KindValidation))

	empty, err := svc.FocusSummary(ctx, 9999, 7)
	require.NoError(t, err)
	assert.NotNil(t, empty.Trends)
	assert.Zero(t, empty.Total)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t)
	u := mustUser(t, db, "ada")
	other := mustUser(t, db, "bob")

	s1 := &chat.Session{ID: uuid.NewString(), UserID: u.ID, Title: "one", PersonaID: "p"}
	s2 := &chat.Session{ID: uuid.NewString(), UserID: other.ID, Title: "two", PersonaID: "p"}
	require.NoError(t, db.Create(s1).Error)
	require.NoError(t, db.Create(s2).Error)
	for i, sid := range []string{s1.ID, s1.ID, s2.ID} {
		require.NoError(t, db.Create(&chat.Message{ID: fmt.Sprintf("m%d", i), SessionID: sid, Role: chat.RoleUser, Content: "hi"}).Error)
	}
	for _, st := range []plan.Status{plan.StatusCompleted, plan.StatusPending} {
		require.NoError(t, db.Create(&plan.Plan{ID: uuid.NewString(), UserID: u.ID, Title: "p", Status: st, Category: plan.CategoryBackend}).Error)
	}
	_, _, err := svc.Unlock(ctx, u.ID, UnlockInput{AchievementID: "first-chat", Name: "First chat"})
	require.NoError(t, err)
	_, err = svc.SetFocus(ctx, u.ID, "2026-03-03", 1.5)
	require.NoError(t, err)
	_, err = svc.AddXP(ctx, u.ID, 1500)
	require.NoError(t, err)

	st, err := svc.Statistics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, Statistics{
		UserID:               u.ID,
		Username:             "ada",
		Level:                2,
		XP:                   1500,
		CompletedTasks:       1,
		HoursFocused:         1.5,
		TotalSessions:        1,
		TotalMessages:        2,
		TotalPlans:           2,
		CompletedPlans:       1,
		UnlockedAchievements: 1,
	}, *st)

	_, err = svc.Statistics(ctx, 9999)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}
