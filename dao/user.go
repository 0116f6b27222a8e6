package dao

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
)

// UserDAO handles user-related database operations
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

// CreateUser creates a new user
func (d *UserDAO) CreateUser(subjectID, email, name string) (*models.User, error) {
	user := &models.User{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Email:     email,
		Name:      name,
	}
	if err := d.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserBySubjectID retrieves a user by the identity provider's subject id
func (d *UserDAO) GetUserBySubjectID(subjectID string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("subject_id = ?", subjectID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserName fills in a display name that was missing at registration
func (d *UserDAO) UpdateUserName(id uuid.UUID, name string) error {
	return d.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("name", name).Error
}
