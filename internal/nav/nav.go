// Package nav stores each user's navigation bookmarks.
package nav

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/common"
	"gorm.io/gorm"
)

type Item struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint64    `gorm:"index:idx_nav_user_category;not null" json:"-"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	URL         string    `gorm:"size:2048;not null" json:"url"`
	IconURL     *string   `gorm:"size:2048" json:"icon_url"`
	Category    string    `gorm:"index:idx_nav_user_category;size:50;not null" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Item) TableName() string { return "nav_items" }

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Input struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	URL         string  `json:"url" binding:"required"`
	IconURL     *string `json:"icon_url"`
	Category    string  `json:"category" binding:"required"`
}

func (s *Service) Create(ctx context.Context, userID uint64, in Input) (*Item, error) {
	it, err := newItem(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(it).Error; err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	return it, nil
}

func newItem(userID uint64, in Input) (*Item, error) {
	it := &Item{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		URL:         strings.TrimSpace(in.URL),
		IconURL:     in.IconURL,
		Category:    strings.TrimSpace(in.Category),
	}
	if it.Title == "" || it.Category == "" {
		return nil, common.Invalid("title and category are required")
	}
	if err := checkURL(it.URL); err != nil {
		return nil, err
	}
	return it, nil
}

// List returns the user's bookmarks grouped by category, then by title.
func (s *Service) List(ctx context.Context, userID uint64, category, query string) ([]Item, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(url) LIKE ?)", like, like, like)
	}
	var out []Item
	if err := q.Order("category ASC").Order("title ASC").Find(&out).Error; err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	return out, nil
}

func (s *Service) Categories(ctx context.Context, userID uint64) ([]string, error) {
	out := []string{}
	err := s.db.WithContext(ctx).Model(&Item{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("category ASC").
		Pluck("category", &out).Error
	if err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	return out, nil
}

func (s *Service) owned(ctx context.Context, userID uint64, id string) (*Item, error) {
	var it Item
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	if it.UserID != userID {
		return nil, common.Forbidden("you do not have access to this nav item")
	}
	return &it, nil
}

type Patch struct {
	Title       common.Optional[string] `json:"title"`
	Description common.Optional[string] `json:"description"`
	URL         common.Optional[string] `json:"url"`
	IconURL     common.Optional[string] `json:"icon_url"`
	Category    common.Optional[string] `json:"category"`
}

func (s *Service) Update(ctx context.Context, userID uint64, id string, patch Patch) (*Item, error) {
	it, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title.Set {
		if it.Title = strings.TrimSpace(patch.Title.Value); it.Title == "" {
			return nil, common.Invalid("title cannot be empty")
		}
	}
	if patch.Category.Set {
		if it.Category = strings.TrimSpace(patch.Category.Value); it.Category == "" {
			return nil, common.Invalid("category cannot be empty")
		}
	}
	if patch.URL.Set {
		it.URL = strings.TrimSpace(patch.URL.Value)
		if err := checkURL(it.URL); err != nil {
			return nil, err
		}
	}
	if patch.Description.Set {
		it.Description = strings.TrimSpace(patch.Description.Value)
	}
	if patch.IconURL.Set {
		it.IconURL = patch.IconURL.Ptr()
	}
	if err := s.db.WithContext(ctx).Save(it).Error; err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	return it, nil
}

func (s *Service) Delete(ctx context.Context, userID uint64, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Item{}).Error; err != nil {
		return common.FromDB(err, "nav item")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return common.Invalid("url must be an absolute http(s) URL")
	}
	return nil
}
