package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// StatusLLMError marks a user message whose generation attempt failed.
const StatusLLMError = "llm_error"

// Message represents one turn in a project's conversation. Messages are
// append-only; the only mutation ever applied is the error annotation set
// when the completion call for a user turn fails.
type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	UserID      uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Role        string    `gorm:"not null" json:"role"` // "user", "assistant" or "system"
	Content     string    `gorm:"not null" json:"content"`
	Status      string    `json:"status,omitempty"`
	ErrorReason string    `json:"error_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
