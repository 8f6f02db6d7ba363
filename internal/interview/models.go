package interview

import "time"

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

type Question struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint64     `gorm:"index:idx_question_user_category;not null" json:"-"`
	Category    string     `gorm:"index:idx_question_user_category;size:50;not null" json:"category"`
	Title       string     `gorm:"size:500;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  Difficulty `gorm:"size:10;not null" json:"difficulty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Question) TableName() string { return "interview_questions" }

// MistakeRecord flags a question in the user's mistake log. One record per (user, question).
type MistakeRecord struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint64    `gorm:"uniqueIndex:uniq_mistake_user_question;not null" json:"-"`
	QuestionID  string    `gorm:"uniqueIndex:uniq_mistake_user_question;size:36;not null" json:"question_id"`
	Question    *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"question,omitempty"`
	AIAnalysis  *string   `gorm:"type:text" json:"ai_analysis"`
	ReviewCount int       `gorm:"not null;default:0" json:"review_count"`
	AddedAt     time.Time `json:"added_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MistakeRecord) TableName() string { return "mistake_records" }
