package chat

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel || r == RoleSystem
}

// ModelParams are the per-session sampling overrides. Nil fields fall back to request defaults.
type ModelParams struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopK            *int     `json:"top_k,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}

// PersonaSnapshot is the custom persona copied onto a session at selection time.
type PersonaSnapshot struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	SystemPrompt string `json:"system_prompt"`
}

type Session struct {
	ID                   string                          `gorm:"primaryKey;size:36" json:"id"`
	UserID               uint64                          `gorm:"index:idx_chat_session_user_order,priority:1;not null" json:"-"`
	Title                string                          `gorm:"size:200;not null" json:"title"`
	PersonaID            string                          `gorm:"size:64;not null" json:"persona_id"`
	CustomPersona        datatypes.JSON                  `json:"custom_persona"`
	Tags                 datatypes.JSONSlice[string]     `json:"tags"`
	SystemPromptOverride *string                         `gorm:"type:text" json:"system_prompt_override"`
	ModelParams          datatypes.JSONType[ModelParams] `json:"model_params"`
	OrderIndex           int                             `gorm:"index:idx_chat_session_user_order,priority:2;not null;default:0" json:"order_index"`
	CreatedAt            time.Time                       `json:"created_at"`
	UpdatedAt            time.Time                       `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Persona returns the embedded custom persona, or nil when the session uses a preset.
func (s *Session) Persona() *PersonaSnapshot {
	if len(s.CustomPersona) == 0 || string(s.CustomPersona) == "null" {
		return nil
	}
	var p PersonaSnapshot
	if err := json.Unmarshal(s.CustomPersona, &p); err != nil {
		return nil
	}
	return &p
}

// Message is immutable once written. Retrieval order is created_at ASC; the
// time-ordered id breaks ties inside one timestamp.
type Message struct {
	ID         string    `gorm:"primaryKey;size:26" json:"id"`
	SessionID  string    `gorm:"size:36;not null;index:idx_chat_msg_session_created,priority:1" json:"session_id"`
	Role       Role      `gorm:"type:varchar(16);not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsThinking bool      `gorm:"not null;default:false" json:"is_thinking"`
	CreatedAt  time.Time `gorm:"index:idx_chat_msg_session_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }
