package logic

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/pkg"
)

// UserRegistry is the user persistence surface needed by login.
type UserRegistry interface {
	GetUserBySubjectID(subjectID string) (*models.User, error)
	CreateUser(subjectID, email, name string) (*models.User, error)
	UpdateUserName(id uuid.UUID, name string) error
}

// UserLogic handles user registration and lookup
type UserLogic struct {
	users UserRegistry
}

func NewUserLogic(users UserRegistry) *UserLogic {
	return &UserLogic{users: users}
}

// EnsureUser returns the application user for a verified identity, creating
// the record on first login and backfilling a missing display name.
func (l *UserLogic) EnsureUser(identity *pkg.Identity) (*models.User, error) {
	user, err := l.users.GetUserBySubjectID(identity.SubjectID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return l.users.CreateUser(identity.SubjectID, identity.Email, identity.Name)
	}

	if user.Name == "" && identity.Name != "" {
		if err := l.users.UpdateUserName(user.ID, identity.Name); err != nil {
			return nil, err
		}
		user.Name = identity.Name
	}

	return user, nil
}
