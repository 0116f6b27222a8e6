package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user registered via the identity provider
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID string    `gorm:"uniqueIndex;not null" json:"subject_id"` // provider uid
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
