package plan

import (
	"context"
	"math"

	"github.com/suPer8Hu/codesensei/internal/common"
)

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 365
)

// SetProgress stores progress clamped to 0..100.
func (s *Service) SetProgress(ctx context.Context, userID uint64, id string, progress int) (*Plan, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Progress = min(max(progress, 0), 100)
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return p, nil
}

// Complete marks the plan completed at 100%.
func (s *Service) Complete(ctx context.Context, userID uint64, id string) (*Plan, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Status = StatusCompleted
	p.Progress = 100
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return p, nil
}

func (s *Service) ownedAny(ctx context.Context, userID uint64, id string) (*Plan, error) {
	p, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	if p.UserID != userID {
		return nil, common.Forbidden("you do not have access to this plan")
	}
	return p, nil
}

// Restore brings back a soft-deleted plan. Restoring a live plan is a no-op.
func (s *Service) Restore(ctx context.Context, userID uint64, id string) (*Plan, error) {
	if _, err := s.ownedAny(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return s.owned(ctx, userID, id)
}

// Purge removes the plan for good, deleted or not.
func (s *Service) Purge(ctx context.Context, userID uint64, id string) error {
	if _, err := s.ownedAny(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Purge(ctx, id); err != nil {
		return common.FromDB(err, "plan")
	}
	return nil
}

type Statistics struct {
	Total          int              `json:"total"`
	Pending        int              `json:"pending"`
	InProgress     int              `json:"in_progress"`
	Completed      int              `json:"completed"`
	CompletionRate int              `json:"completion_rate"`
	ByCategory     map[Category]int `json:"by_category"`
}

// Statistics summarizes the user's live plans. CompletionRate is a rounded percentage.
func (s *Service) Statistics(ctx context.Context, userID uint64) (*Statistics, error) {
	plans, err := s.repo.List(ctx, userID, Filter{})
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	st := &Statistics{Total: len(plans), ByCategory: map[Category]int{}}
	for _, p := range plans {
		switch p.Status {
		case StatusPending:
			st.Pending++
		case StatusInProgress:
			st.InProgress++
		case StatusCompleted:
			st.Completed++
		}
		st.ByCategory[p.Category]++
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) * 100 / float64(st.Total)))
	}
	return st, nil
}

// Upcoming lists unfinished plans ending between today and today+days.
func (s *Service) Upcoming(ctx context.Context, userID uint64, days int) ([]Plan, error) {
	if days <= 0 {
		days = defaultUpcomingDays
	}
	if days > maxUpcomingDays {
		return nil, common.Invalid("days must be at most 365")
	}
	today := s.now()
	out, err := s.repo.OpenEndingBetween(ctx, userID,
		today.Format(dateLayout),
		today.AddDate(0, 0, days).Format(dateLayout),
	)
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return out, nil
}

// Overdue lists unfinished plans whose end date has passed.
func (s *Service) Overdue(ctx context.Context, userID uint64) ([]Plan, error) {
	yesterday := s.now().AddDate(0, 0, -1).Format(dateLayout)
	out, err := s.repo.OpenEndingBetween(ctx, userID, "", yesterday)
	if err != nil {
		return nil, common.FromDB(err, "plan")
	}
	return out, nil
}
