package plan

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

type Filter struct {
	Status   Status
	Category Category
	// Query matches title or description, case-insensitively.
	Query string
}

func (r *Repo) Create(ctx context.Context, p *Plan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) Get(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the user's plans ordered by start date.
func (r *Repo) List(ctx context.Context, userID uint64, f Filter) ([]Plan, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	var out []Plan
	if err := q.Order("start_date ASC").Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Save(ctx context.Context, p *Plan) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Plan{}).Error
}

// GetAny also finds soft-deleted plans.
func (r *Repo) GetAny(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Restore(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Unscoped().Model(&Plan{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
}

func (r *Repo) Purge(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&Plan{}).Error
}

// OpenEndingBetween lists unfinished plans whose end date falls in [from, to], soonest first.
// An empty from means no lower bound.
func (r *Repo) OpenEndingBetween(ctx context.Context, userID uint64, from, to string) ([]Plan, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, StatusCompleted).
		Where("end_date <= ?", to)
	if from != "" {
		q = q.Where("end_date >= ?", from)
	}
	var out []Plan
	if err := q.Order("end_date ASC").Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
