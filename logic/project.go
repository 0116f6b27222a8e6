package logic

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
)

// HistoryLimit is the number of messages returned by the history endpoint.
const HistoryLimit = 50

// ProjectRegistry is the project persistence surface needed by the CRUD routes.
type ProjectRegistry interface {
	CreateProject(userID uuid.UUID, name, description, systemPrompt string) (*models.Project, error)
	GetProjectByID(id uuid.UUID) (*models.Project, error)
	GetProjectsByUserID(userID uuid.UUID) ([]models.Project, error)
}

// ProjectLogic handles project CRUD and message history, always scoped to the
// authenticated caller.
type ProjectLogic struct {
	users    UserStore
	projects ProjectRegistry
	messages MessageStore
}

func NewProjectLogic(users UserStore, projects ProjectRegistry, messages MessageStore) *ProjectLogic {
	return &ProjectLogic{
		users:    users,
		projects: projects,
		messages: messages,
	}
}

func (l *ProjectLogic) resolveUser(subjectID string) (*models.User, error) {
	user, err := l.users.GetUserBySubjectID(subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateProject creates a project owned by the caller
func (l *ProjectLogic) CreateProject(subjectID, name, description, systemPrompt string) (*models.Project, error) {
	user, err := l.resolveUser(subjectID)
	if err != nil {
		return nil, err
	}
	return l.projects.CreateProject(user.ID, name, description, systemPrompt)
}

// ListProjects returns the caller's projects, newest first
func (l *ProjectLogic) ListProjects(subjectID string) ([]models.Project, error) {
	user, err := l.resolveUser(subjectID)
	if err != nil {
		return nil, err
	}
	return l.projects.GetProjectsByUserID(user.ID)
}

// GetProjectMessages returns the last HistoryLimit messages of a project in
// chronological order, after checking the caller owns it.
func (l *ProjectLogic) GetProjectMessages(subjectID, projectID string) ([]models.Message, error) {
	user, err := l.resolveUser(subjectID)
	if err != nil {
		return nil, err
	}

	pid, err := uuid.Parse(projectID)
	if err != nil {
		return nil, ErrProjectNotFound
	}

	project, err := l.projects.GetProjectByID(pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.UserID != user.ID {
		return nil, ErrForbidden
	}

	return l.messages.GetRecentMessages(pid, HistoryLimit)
}
