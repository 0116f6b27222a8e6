package dao

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
)

// MessageDAO handles message-related database operations
type MessageDAO struct {
	db *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{db: db}
}

// CreateMessage appends a message to a project's conversation
func (d *MessageDAO) CreateMessage(projectID, userID uuid.UUID, role, content string) (*models.Message, error) {
	msg := &models.Message{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		Content:   content,
	}
	if err := d.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// GetRecentMessages retrieves the last `limit` messages of a project in
// chronological order (oldest of the window first).
func (d *MessageDAO) GetRecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message
	if err := d.db.Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	// Query returns newest first; reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkMessageError annotates a message after a failed generation attempt
func (d *MessageDAO) MarkMessageError(id uint64, reason string) error {
	return d.db.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.StatusLLMError,
			"error_reason": reason,
		}).Error
}
