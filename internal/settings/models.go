package settings

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// ProviderSettings is one provider's entry. APIKey is encrypted at rest.
type ProviderSettings struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

type ProviderMap map[string]ProviderSettings

type UserSettings struct {
	ID              string                          `gorm:"primaryKey;size:36" json:"id"`
	UserID          uint64                          `gorm:"uniqueIndex;not null" json:"-"`
	Theme           string                          `gorm:"size:16;not null" json:"theme"`
	DefaultProvider string                          `gorm:"size:32;not null" json:"api_provider"`
	Providers       datatypes.JSONType[ProviderMap] `json:"provider_settings"`
	CreatedAt       time.Time                       `json:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"`
}

func (UserSettings) TableName() string { return "user_settings" }
