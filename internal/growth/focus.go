package growth

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxHoursPerDay     = 24
	defaultRecentDays  = 7
	defaultSummaryDays = 30
	maxRangeDays       = 366
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func parseDay(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, common.Invalid("date must be YYYY-MM-DD")
	}
	return t, nil
}

func checkHours(h float64) error {
	if math.IsNaN(h) || h < 0 || h > maxHoursPerDay {
		return common.Invalid("focus hours must be between 0 and 24")
	}
	return nil
}

// SetFocus stores the hours for the day, replacing any earlier value. An empty date means today.
func (s *Service) SetFocus(ctx context.Context, userID uint64, date string, hours float64) (*FocusDay, error) {
	return s.writeFocus(ctx, userID, date, func(float64) (float64, error) {
		if err := checkHours(hours); err != nil {
			return 0, err
		}
		return round2(hours), nil
	})
}

// AddFocus adds hours to the day. The day total may not exceed 24.
func (s *Service) AddFocus(ctx context.Context, userID uint64, date string, hours float64) (*FocusDay, error) {
	if hours <= 0 {
		return nil, common.Invalid("focus hours must be positive")
	}
	return s.writeFocus(ctx, userID, date, func(cur float64) (float64, error) {
		next := round2(cur + hours)
		if err := checkHours(next); err != nil {
			return 0, err
		}
		return next, nil
	})
}

func (s *Service) writeFocus(ctx context.Context, userID uint64, date string, next func(cur float64) (float64, error)) (*FocusDay, error) {
	if date == "" {
		date = s.now().Format(dateLayout)
	}
	day, err := parseDay(date)
	if err != nil {
		return nil, err
	}

	var out FocusDay
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND date = ?", userID, date).
			First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = FocusDay{ID: uuid.NewString(), UserID: userID, Date: date, DayName: day.Weekday().String()[:3]}
		case err != nil:
			return err
		}
		hours, err := next(out.FocusHours)
		if err != nil {
			return err
		}
		out.FocusHours = hours
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, common.FromDB(err, "focus record")
	}
	return &out, nil
}

// Trends lists the days in [from, to], oldest first.
func (s *Service) Trends(ctx context.Context, userID uint64, from, to string) ([]FocusDay, error) {
	f, err := parseDay(from)
	if err != nil {
		return nil, err
	}
	t, err := parseDay(to)
	if err != nil {
		return nil, err
	}
	if t.Before(f) {
		return nil, common.Invalid("to is before from")
	}
	if t.Sub(f) > maxRangeDays*24*time.Hour {
		return nil, common.Invalid("date range is too long")
	}
	var out []FocusDay
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&out).Error
	if err != nil {
		return nil, common.FromDB(err, "focus record")
	}
	return out, nil
}

// RecentTrends covers the last days days, today included.
func (s *Service) RecentTrends(ctx context.Context, userID uint64, days int) ([]FocusDay, error) {
	if days <= 0 {
		days = defaultRecentDays
	}
	if days > maxRangeDays {
		return nil, common.Invalid("days is too large")
	}
	today := s.now()
	return s.Trends(ctx, userID, today.AddDate(0, 0, 1-days).Format(dateLayout), today.Format(dateLayout))
}

func (s *Service) TotalFocusHours(ctx context.Context, userID uint64) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&FocusDay{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(focus_hours), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, common.FromDB(err, "focus record")
	}
	return round2(total), nil
}

type FocusSummary struct {
	Days    int        `json:"days"`
	Total   float64    `json:"total_hours"`
	Average float64    `json:"average_hours"`
	Max     float64    `json:"max_hours"`
	Min     float64    `json:"min_hours"`
	Trends  []FocusDay `json:"trends"`
}

// FocusSummary reports over the recorded days in the window. Average, Max and Min
// only count days with a record.
func (s *Service) FocusSummary(ctx context.Context, userID uint64, days int) (*FocusSummary, error) {
	if days <= 0 {
		days = defaultSummaryDays
	}
	trends, err := s.RecentTrends(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	sum := &FocusSummary{Days: days, Trends: trends}
	if len(trends) == 0 {
		sum.Trends = []FocusDay{}
		return sum, nil
	}
	sum.Min = math.Inf(1)
	for _, d := range trends {
		sum.Total += d.FocusHours
		sum.Max = max(sum.Max, d.FocusHours)
		sum.Min = min(sum.Min, d.FocusHours)
	}
	sum.Total = round2(sum.Total)
	sum.Average = round2(sum.Total / float64(len(trends)))
	return sum, nil
}
