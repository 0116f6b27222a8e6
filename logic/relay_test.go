package logic_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ts-31/agent-hub/logic"
	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/pkg"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) GetUserBySubjectID(subjectID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[subjectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *memUserStore) add(subjectID string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &models.User{ID: uuid.New(), SubjectID: subjectID}
	s.users[subjectID] = user
	return user
}

type memProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
}

func newMemProjectStore() *memProjectStore {
	return &memProjectStore{projects: make(map[uuid.UUID]*models.Project)}
}

func (s *memProjectStore) GetProjectByID(id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return project, nil
}

func (s *memProjectStore) add(owner *models.User, systemPrompt string) *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	project := &models.Project{ID: uuid.New(), UserID: owner.ID, Name: "test", SystemPrompt: systemPrompt}
	s.projects[project.ID] = project
	return project
}

type memMessageStore struct {
	mu       sync.Mutex
	nextID   uint64
	messages []models.Message
	failNext bool
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{}
}

func (s *memMessageStore) CreateMessage(projectID, userID uuid.UUID, role, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, errors.New("store unavailable")
	}
	s.nextID++
	msg := models.Message{
		ID:        s.nextID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *memMessageStore) GetRecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Message
	for _, m := range s.messages {
		if m.ProjectID == projectID {
			all = append(all, m)
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *memMessageStore) MarkMessageError(id uint64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Status = models.StatusLLMError
			s.messages[i].ErrorReason = reason
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memMessageStore) byProject(projectID uuid.UUID) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out
}

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   [][]pkg.ChatTurn
	systems []string
	block   chan struct{}
}

func (c *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []pkg.ChatTurn) (string, error) {
	c.mu.Lock()
	copied := make([]pkg.ChatTurn, len(turns))
	copy(copied, turns)
	c.calls = append(c.calls, copied)
	c.systems = append(c.systems, systemPrompt)
	block := c.block
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return c.reply, c.err
}

func newRelay(users *memUserStore, projects *memProjectStore, messages *memMessageStore, completer *fakeCompleter) *logic.RelayLogic {
	return logic.NewRelayLogic(users, projects, messages, completer, time.Second)
}

func TestHandleMessageMissingFields(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	relay := newRelay(users, projects, messages, &fakeCompleter{reply: "hi"})

	cases := []struct {
		projectID string
		content   string
	}{
		{"", "hello"},
		{uuid.NewString(), ""},
		{"  ", "hello"},
		{"not-a-uuid", "hello"},
	}
	for _, tc := range cases {
		_, err := relay.HandleMessage(context.Background(), "sub", tc.projectID, tc.content)
		require.ErrorIs(t, err, logic.ErrMissingFields)
	}
	require.Empty(t, messages.messages, "no turn may be persisted on validation failure")
}

func TestHandleMessageUserNotFound(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	relay := newRelay(users, projects, messages, &fakeCompleter{reply: "hi"})

	_, err := relay.HandleMessage(context.Background(), "unknown", uuid.NewString(), "hello")
	require.ErrorIs(t, err, logic.ErrUserNotFound)
	require.Empty(t, messages.messages)
}

func TestHandleMessageProjectNotFound(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	relay := newRelay(users, projects, messages, &fakeCompleter{reply: "hi"})

	users.add("sub")
	_, err := relay.HandleMessage(context.Background(), "sub", uuid.NewString(), "hello")
	require.ErrorIs(t, err, logic.ErrProjectNotFound)
	require.Empty(t, messages.messages)
}

func TestHandleMessageForbidden(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	relay := newRelay(users, projects, messages, &fakeCompleter{reply: "hi"})

	owner := users.add("owner")
	users.add("intruder")
	project := projects.add(owner, "")

	_, err := relay.HandleMessage(context.Background(), "intruder", project.ID.String(), "hello")
	require.ErrorIs(t, err, logic.ErrForbidden)
	require.Empty(t, messages.messages, "no turn may be persisted for a non-owner")
}

func TestHandleMessageStoreFailureBeforeGeneration(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	completer := &fakeCompleter{reply: "hi"}
	relay := newRelay(users, projects, messages, completer)

	owner := users.add("owner")
	project := projects.add(owner, "")
	messages.failNext = true

	_, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), "hello")
	require.ErrorIs(t, err, logic.ErrInternal)
	require.Empty(t, completer.calls, "model must not be called when the user turn failed to persist")
}

func TestHandleMessageLLMFailure(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	completer := &fakeCompleter{err: errors.New("model exploded")}
	relay := newRelay(users, projects, messages, completer)

	owner := users.add("owner")
	project := projects.add(owner, "")

	_, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), "hello")
	require.ErrorIs(t, err, logic.ErrLLMFailed)

	persisted := messages.byProject(project.ID)
	require.Len(t, persisted, 1, "exactly one user turn must exist after a failed generation")
	require.Equal(t, models.RoleUser, persisted[0].Role)
	require.Equal(t, models.StatusLLMError, persisted[0].Status)
	require.Contains(t, persisted[0].ErrorReason, "model exploded")
}

func TestHandleMessageTimeout(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	completer := &fakeCompleter{reply: "late", block: make(chan struct{})}
	relay := logic.NewRelayLogic(users, projects, messages, completer, 20*time.Millisecond)

	owner := users.add("owner")
	project := projects.add(owner, "")

	_, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), "hello")
	require.ErrorIs(t, err, logic.ErrLLMFailed)

	persisted := messages.byProject(project.ID)
	require.Len(t, persisted, 1)
	require.Equal(t, models.StatusLLMError, persisted[0].Status)
}

func TestHandleMessageSuccess(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	completer := &fakeCompleter{reply: "hello back"}
	relay := newRelay(users, projects, messages, completer)

	owner := users.add("owner")
	project := projects.add(owner, "you are a helpful agent")

	msg, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), "hello")
	require.NoError(t, err)
	require.Equal(t, models.RoleAssistant, msg.Role)
	require.Equal(t, "hello back", msg.Content)

	persisted := messages.byProject(project.ID)
	require.Len(t, persisted, 2)
	require.Equal(t, models.RoleUser, persisted[0].Role)
	require.Equal(t, "hello", persisted[0].Content)
	require.Equal(t, models.RoleAssistant, persisted[1].Role)

	require.Len(t, completer.calls, 1)
	require.Equal(t, "you are a helpful agent", completer.systems[0])
	window := completer.calls[0]
	require.LessOrEqual(t, len(window), logic.ContextWindow)
	require.Equal(t, "hello", window[len(window)-1].Content, "the new user turn must be in the window")
}

func TestContextWindowBoundary(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()
	completer := &fakeCompleter{reply: "ok"}
	relay := newRelay(users, projects, messages, completer)

	owner := users.add("owner")
	project := projects.add(owner, "")

	for i := 0; i < 15; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := messages.CreateMessage(project.ID, owner.ID, role, fmt.Sprintf("turn-%d", i))
		require.NoError(t, err)
	}

	_, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), "newest")
	require.NoError(t, err)

	require.Len(t, completer.calls, 1)
	window := completer.calls[0]
	require.Len(t, window, logic.ContextWindow)
	// Oldest first: turns 7..14 then the new user turn.
	require.Equal(t, "turn-7", window[0].Content)
	require.Equal(t, "turn-14", window[len(window)-2].Content)
	require.Equal(t, "newest", window[len(window)-1].Content)
}

func TestPerProjectSerialization(t *testing.T) {
	users := newMemUserStore()
	projects := newMemProjectStore()
	messages := newMemMessageStore()

	var mu sync.Mutex
	active, maxActive := 0, 0
	completer := &trackingCompleter{enter: func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}}
	relay := logic.NewRelayLogic(users, projects, messages, completer, time.Second)

	owner := users.add("owner")
	project := projects.add(owner, "")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := relay.HandleMessage(context.Background(), "owner", project.ID.String(), fmt.Sprintf("msg-%d", n))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 1, maxActive, "events for one project must not run the generate section concurrently")

	// Turns come out strictly paired: user then assistant, four times.
	persisted := messages.byProject(project.ID)
	require.Len(t, persisted, 8)
	for i := 0; i < len(persisted); i += 2 {
		require.Equal(t, models.RoleUser, persisted[i].Role)
		require.Equal(t, models.RoleAssistant, persisted[i+1].Role)
	}
}

type trackingCompleter struct {
	enter func()
}

func (c *trackingCompleter) Complete(ctx context.Context, systemPrompt string, turns []pkg.ChatTurn) (string, error) {
	c.enter()
	return "ok", nil
}
