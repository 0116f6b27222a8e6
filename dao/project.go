package dao

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
)

// ProjectDAO handles project-related database operations
type ProjectDAO struct {
	db *gorm.DB
}

func NewProjectDAO(db *gorm.DB) *ProjectDAO {
	return &ProjectDAO{db: db}
}

// CreateProject creates a new project owned by the given user
func (d *ProjectDAO) CreateProject(userID uuid.UUID, name, description, systemPrompt string) (*models.Project, error) {
	project := &models.Project{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		Description:  description,
		SystemPrompt: systemPrompt,
	}
	if err := d.db.Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// GetProjectByID retrieves a project by id
func (d *ProjectDAO) GetProjectByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := d.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectsByUserID retrieves a user's projects, newest first
func (d *ProjectDAO) GetProjectsByUserID(userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	if err := d.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}
