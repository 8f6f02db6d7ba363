package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a queued chat completion. The user turn is already stored when the job is created.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	UserID    uint64 `gorm:"index;index:uniq_chat_job_user_idempo,unique,priority:1;not null" json:"-"`
	SessionID string `gorm:"size:36;index;not null" json:"session_id"`

	Prompt   string `gorm:"type:text;not null" json:"-"`
	Provider string `gorm:"size:32;not null" json:"provider"`
	Model    string `gorm:"size:64" json:"model,omitempty"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_chat_job_user_idempo,unique,priority:2" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultMessageID *string `gorm:"size:26" json:"result_message_id"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "chat_jobs" }
