package plan

import (
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Category string

const (
	CategoryFrontend   Category = "frontend"
	CategoryBackend    Category = "backend"
	CategoryAlgorithm  Category = "algorithm"
	CategorySoftSkills Category = "soft-skills"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFrontend, CategoryBackend, CategoryAlgorithm, CategorySoftSkills:
		return true
	}
	return false
}

// normalizeCategory coerces anything unknown to frontend.
func normalizeCategory(raw string) Category {
	if c := Category(raw); c.Valid() {
		return c
	}
	return CategoryFrontend
}

const dateLayout = "2006-01-02"

// Plan is one stage of a learning plan. Deleted plans are soft-deleted.
type Plan struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint64         `gorm:"index:idx_plan_user_status;not null" json:"-"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      Status         `gorm:"index:idx_plan_user_status;size:20;not null" json:"status"`
	Category    Category       `gorm:"size:20;not null" json:"category"`
	Progress    int            `gorm:"not null;default:0" json:"progress"`
	StartDate   string         `gorm:"size:10" json:"start_date"`
	EndDate     string         `gorm:"size:10" json:"end_date"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Plan) TableName() string { return "learning_plans" }
