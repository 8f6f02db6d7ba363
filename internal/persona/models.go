package persona

import "time"

const (
	defaultRole   = "Custom"
	defaultAvatar = "🤖"
)

// Persona is a user-defined persona.
type Persona struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint64    `gorm:"index;not null" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Role         string    `gorm:"size:50;not null" json:"role"`
	Avatar       string    `gorm:"size:32;not null" json:"avatar"`
	Description  string    `gorm:"type:text" json:"description"`
	SystemPrompt string    `gorm:"type:text;not null" json:"system_prompt"`
	Greeting     string    `gorm:"type:text" json:"greeting"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Persona) TableName() string { return "custom_personas" }
