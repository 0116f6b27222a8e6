package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/ts-31/agent-hub/logic"
	"github.com/ts-31/agent-hub/middleware"
)

// ProjectController handles project CRUD and message history
type ProjectController struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectController(projectLogic *logic.ProjectLogic) *ProjectController {
	return &ProjectController{projectLogic: projectLogic}
}

// CreateProject handles POST /api/projects
func (p *ProjectController) CreateProject(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}

	type Request struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		SystemPrompt string `json:"systemPrompt"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Project name is required"})
		return
	}

	project, err := p.projectLogic.CreateProject(identity.SubjectID, req.Name, req.Description, req.SystemPrompt)
	if err != nil {
		if errors.Is(err, logic.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "User not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"ok": true, "project": project})
}

// GetProjects handles GET /api/projects
func (p *ProjectController) GetProjects(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}

	projects, err := p.projectLogic.ListProjects(identity.SubjectID)
	if err != nil {
		if errors.Is(err, logic.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "User not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to fetch projects"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "projects": projects})
}

// GetProjectMessages handles GET /api/projects/:projectId/messages
func (p *ProjectController) GetProjectMessages(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}

	messages, err := p.projectLogic.GetProjectMessages(identity.SubjectID, ctx.Param("projectId"))
	if err != nil {
		switch {
		case errors.Is(err, logic.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "User not found"})
		case errors.Is(err, logic.ErrProjectNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Project not found"})
		case errors.Is(err, logic.ErrForbidden):
			ctx.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Not authorized for this project"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to fetch messages"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "messages": messages})
}
