package growth

import "time"

const dateLayout = "2006-01-02"

// Achievement is unlocked at most once per user.
type Achievement struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint64    `gorm:"uniqueIndex:uniq_achievement_user;not null" json:"-"`
	AchievementID string    `gorm:"uniqueIndex:uniq_achievement_user;size:64;not null" json:"achievement_id"`
	Name          string    `gorm:"size:100;not null" json:"achievement_name"`
	Icon          string    `gorm:"size:64" json:"achievement_icon"`
	UnlockedAt    time.Time `gorm:"index" json:"unlocked_at"`
}

func (Achievement) TableName() string { return "user_achievements" }

// FocusDay holds the focus hours logged for one calendar day.
type FocusDay struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     uint64    `gorm:"uniqueIndex:uniq_focus_user_date;not null" json:"-"`
	Date       string    `gorm:"uniqueIndex:uniq_focus_user_date;size:10;not null" json:"date"`
	DayName    string    `gorm:"size:3;not null" json:"day_name"`
	FocusHours float64   `gorm:"not null;default:0" json:"focus_hours"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (FocusDay) TableName() string { return "focus_trends" }
