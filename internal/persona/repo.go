package persona

import (
	"context"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/chat"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, p *Persona) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) Get(ctx context.Context, id string) (*Persona, error) {
	var p Persona
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's personas, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Persona, error) {
	var out []Persona
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Save(ctx context.Context, p *Persona) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Persona{}).Error
}

func (r *Repo) Search(ctx context.Context, userID uint64, query string) ([]Persona, error) {
	like := "%" + strings.ToLower(query) + "%"
	var out []Persona
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(role) LIKE ?)", like, like, like).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SessionsUsing(ctx context.Context, userID uint64, personaID string) ([]SessionRef, error) {
	var out []SessionRef
	err := r.db.WithContext(ctx).Model(&chat.Session{}).
		Select("id", "title").
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		Order("order_index ASC").
		Scan(&out).Error
	return out, err
}
