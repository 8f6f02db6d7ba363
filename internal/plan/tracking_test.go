package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/common"
)

func TestSetProgressClampsAndComplete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	p, err := svc.Create(ctx, 1, CreateInput{Title: "a"})
	require.NoError(t, err)

	got, err := svc.SetProgress(ctx, 1, p.ID, 140)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	got, err = svc.SetProgress(ctx, 1, p.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)

	_, err = svc.Complete(ctx, 2, p.ID)
	assert.True(t, common.IsKind(err, common.KindAuthorization))
	got, err = svc.Complete(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}

func TestRestoreAndPurge(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	p, err := svc.Create(ctx, 1, CreateInput{Title: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 1, p.ID))

	_, err = svc.Restore(ctx, 2, p.ID)
	assert.True(t, common.IsKind(err, common.KindAuthorization))
	got, err := svc.Restore(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	all, err := svc.List(ctx, 1, "", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	require.NoError(t, svc.Purge(ctx, 1, p.ID))
	_, err = svc.Restore(ctx, 1, p.ID)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	empty, err := svc.Statistics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.CompletionRate)

	for _, in := range []CreateInput{
		{Title: "a", Category: "backend", Status: "completed"},
		{Title: "b", Category: "backend", Status: "in-progress"},
		{Title: "c", Category: "algorithm"},
	} {
		_, err := svc.Create(ctx, 1, in)
		require.NoError(t, err)
	}
	_, err = svc.Create(ctx, 2, CreateInput{Title: "other"})
	require.NoError(t, err)

	st, err := svc.Statistics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.InProgress)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 33, st.CompletionRate)
	assert.Equal(t, map[Category]int{CategoryBackend: 2, CategoryAlgorithm: 1}, st.ByCategory)
}

func TestUpcomingAndOverdue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	mk := func(title, start, end, status string) {
		t.Helper()
		_, err := svc.Create(ctx, 1, CreateInput{Title: title, StartDate: start, EndDate: end, Status: status})
		require.NoError(t, err)
	}
	mk("late", "2026-02-01", "2026-02-20", "")
	mk("late but done", "2026-02-01", "2026-02-20", "completed")
	mk("today", "2026-02-25", "2026-03-01", "")
	mk("soon", "2026-03-01", "2026-03-05", "in-progress")
	mk("later", "2026-03-01", "2026-04-30", "")

	up, err := svc.Upcoming(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, "today", up[0].Title)
	assert.Equal(t, "soon", up[1].Title)

	up, err = svc.Upcoming(ctx, 1, 90)
	require.NoError(t, err)
	assert.Len(t, up, 3)

	_, err = svc.Upcoming(ctx, 1, 400)
	assert.True(t, common.IsKind(err, common.KindValidation))

	late, err := svc.Overdue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "late", late[0].Title)
}

func TestListSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	_, err := svc.Create(ctx, 1, CreateInput{Title: "Learn Goroutines"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, CreateInput{Title: "SQL", Description: "indexes and GOrm"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, CreateInput{Title: "CSS"})
	require.NoError(t, err)

	got, err := svc.List(ctx, 1, "", "", "go")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
