package models

import (
	"time"

	"github.com/google/uuid"
)

// Project represents an agent a user chats with: a name plus the system
// prompt injected into every completion call for its conversation.
type Project struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
