package logic

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/observability"
	"github.com/ts-31/agent-hub/pkg"
)

// ContextWindow is the fixed number of trailing turns sent to the completion
// API, including the just-persisted user turn.
const ContextWindow = 10

// RelayLogic runs the turn protocol for one inbound chat event: authorize,
// persist the user turn, call the completion API with the trailing context
// window, persist the reply.
type RelayLogic struct {
	userStore    UserStore
	projectStore ProjectStore
	messageStore MessageStore
	completer    Completer
	timeout      time.Duration

	// Serializes the persist→generate→persist section per project so two
	// racing events for one conversation cannot interleave their turns.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func NewRelayLogic(
	userStore UserStore,
	projectStore ProjectStore,
	messageStore MessageStore,
	completer Completer,
	timeout time.Duration,
) *RelayLogic {
	return &RelayLogic{
		userStore:    userStore,
		projectStore: projectStore,
		messageStore: messageStore,
		completer:    completer,
		timeout:      timeout,
		locks:        make(map[uuid.UUID]*projectLock),
	}
}

func (l *RelayLogic) lockProject(id uuid.UUID) func() {
	l.locksMu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &projectLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.locksMu.Unlock()
	}
}

// HandleMessage processes one chat event from an authenticated connection and
// returns the persisted assistant message. Failures map onto the relay error
// taxonomy; callers translate them into wire payloads.
func (l *RelayLogic) HandleMessage(ctx context.Context, subjectID, projectID, content string) (*models.Message, error) {
	log := observability.WithFields("subject_id", subjectID, "project_id", projectID)

	// Validate
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(content) == "" {
		return nil, ErrMissingFields
	}
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return nil, ErrMissingFields
	}

	// Resolve application identity
	user, err := l.userStore.GetUserBySubjectID(subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error("user lookup failed", "error", err)
		return nil, ErrInternal
	}

	// Authorize against project ownership
	project, err := l.projectStore.GetProjectByID(pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		log.Error("project lookup failed", "error", err)
		return nil, ErrInternal
	}
	if project.UserID != user.ID {
		return nil, ErrForbidden
	}

	unlock := l.lockProject(pid)
	defer unlock()

	// Persist the user turn. It must be durable before the model call so a
	// failed generation still leaves an audit trail.
	userMsg, err := l.messageStore.CreateMessage(pid, user.ID, models.RoleUser, content)
	if err != nil {
		log.Error("failed to persist user message", "error", err)
		return nil, ErrInternal
	}

	// Assemble the trailing context window, oldest first
	recent, err := l.messageStore.GetRecentMessages(pid, ContextWindow)
	if err != nil {
		log.Error("failed to load context window", "error", err)
		return nil, ErrInternal
	}
	turns := make([]pkg.ChatTurn, 0, len(recent))
	for _, m := range recent {
		turns = append(turns, pkg.ChatTurn{Role: m.Role, Content: m.Content})
	}

	// Generate, under a bounded wait
	genCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	reply, err := l.completer.Complete(genCtx, project.SystemPrompt, turns)
	if err != nil {
		// Best-effort annotation of the user turn; never surfaced.
		if markErr := l.messageStore.MarkMessageError(userMsg.ID, err.Error()); markErr != nil {
			log.Error("failed to annotate user message", "error", markErr)
		}
		log.Error("llm call failed", "error", err)
		return nil, ErrLLMFailed
	}

	// Persist the assistant turn
	assistantMsg, err := l.messageStore.CreateMessage(pid, user.ID, models.RoleAssistant, reply)
	if err != nil {
		log.Error("failed to persist assistant message", "error", err)
		return nil, ErrInternal
	}

	return assistantMsg, nil
}
