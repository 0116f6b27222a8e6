package logic

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/pkg"
)

// Relay error taxonomy. Each inbound chat event either succeeds or fails with
// exactly one of these; anything unclassified is reported as ErrInternal.
var (
	ErrMissingFields   = errors.New("missing projectId or content")
	ErrUserNotFound    = errors.New("user record not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrForbidden       = errors.New("not authorized for this project")
	ErrLLMFailed       = errors.New("llm call failed")
	ErrInternal        = errors.New("internal error")
)

// UserStore resolves verified identities to application user records.
type UserStore interface {
	GetUserBySubjectID(subjectID string) (*models.User, error)
}

// ProjectStore loads project records for authorization and the system prompt.
type ProjectStore interface {
	GetProjectByID(id uuid.UUID) (*models.Project, error)
}

// MessageStore is the append-only conversation log.
type MessageStore interface {
	CreateMessage(projectID, userID uuid.UUID, role, content string) (*models.Message, error)
	GetRecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error)
	MarkMessageError(id uint64, reason string) error
}

// Completer generates one reply from a system prompt and a trailing window of
// prior turns.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []pkg.ChatTurn) (string, error)
}
