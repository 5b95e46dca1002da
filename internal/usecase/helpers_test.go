package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helphand/internal/adapter/repository/memory"
	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/retry"
)

var testPolicy = retry.Policy{
	Attempts:   3,
	Initial:    time.Millisecond,
	Max:        2 * time.Millisecond,
	Multiplier: 2,
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type event struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID, eventType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{UserID: userID, Type: eventType, Payload: payload})
	return nil
}

func (n *recordingNotifier) eventsFor(userID, eventType string) []event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []event
	for _, e := range n.events {
		if e.UserID == userID && e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeImageHost struct {
	mu      sync.Mutex
	uploads int
	err     error
}

func (h *fakeImageHost) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads++
	if h.err != nil {
		return "", h.err
	}
	return "https://i.example.com/" + filename, nil
}

type testEnv struct {
	ctx   context.Context
	store *memory.Store
	clock *fakeClock

	users    repository.UserRepository
	requests repository.RequestRepository
	chats    repository.ChatRepository
	messages repository.MessageRepository

	notifier  *recordingNotifier
	imageHost *fakeImageHost

	userUC    *UserUseCase
	requestUC *RequestUseCase
	unreadUC  *UnreadUseCase
	chatUC    *ChatUseCase
	messageUC *MessageUseCase
	subUC     *SubscriptionUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		ctx:       context.Background(),
		store:     store,
		clock:     &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		users:     memory.NewUserRepository(store),
		requests:  memory.NewRequestRepository(store),
		chats:     memory.NewChatRepository(store),
		messages:  memory.NewMessageRepository(store),
		notifier:  &recordingNotifier{},
		imageHost: &fakeImageHost{},
	}

	env.userUC = NewUserUseCase(env.users)
	env.requestUC = NewRequestUseCase(env.requests, env.users, testPolicy)
	env.unreadUC = NewUnreadUseCase(store, env.chats, env.notifier, testPolicy)
	env.chatUC = NewChatUseCase(store, env.chats, env.messages, env.users, env.unreadUC, env.notifier, nil, testPolicy)
	env.messageUC = NewMessageUseCase(store, env.chats, env.messages, env.imageHost, env.unreadUC, nil, testPolicy)
	env.subUC = NewSubscriptionUseCase(env.chats, env.messages, env.messageUC)

	env.userUC.now = env.clock.Now
	env.requestUC.now = env.clock.Now
	env.chatUC.now = env.clock.Now
	env.messageUC.now = env.clock.Now
	return env
}

func (e *testEnv) seedUser(t *testing.T, id string) {
	t.Helper()
	e.store.PutUser(&entity.User{
		ID:          id,
		DisplayName: id,
		Age:         30,
		Gender:      "Other",
		ProfileSet:  true,
	})
}

func (e *testEnv) seedRequest(t *testing.T, requesterID string) *entity.Request {
	t.Helper()
	req, err := e.requestUC.Create(e.ctx, requesterID, CreateRequestInput{
		Category:      "General Help",
		Description:   "Help me move a couch",
		EstimatedTime: 30,
	})
	require.NoError(t, err)
	return req
}

// openChat seeds U1 (requester) and U2 (helper) with an active chat on a
// fresh request.
func (e *testEnv) openChat(t *testing.T) (*entity.Request, *entity.Chat) {
	t.Helper()
	e.seedUser(t, "U1")
	e.seedUser(t, "U2")
	req := e.seedRequest(t, "U1")

	result, err := e.chatUC.OpenOrCreate(e.ctx, req.ID, "U2")
	require.NoError(t, err)
	require.True(t, result.Created)
	return req, result.Chat
}

func (e *testEnv) request(t *testing.T, id string) *entity.Request {
	t.Helper()
	req, err := e.requests.GetByID(e.ctx, id)
	require.NoError(t, err)
	return req
}

func (e *testEnv) chat(t *testing.T, id string) *entity.Chat {
	t.Helper()
	chat, err := e.chats.GetByID(e.ctx, id)
	require.NoError(t, err)
	return chat
}

func (e *testEnv) user(t *testing.T, id string) *entity.User {
	t.Helper()
	user, err := e.users.GetByID(e.ctx, id)
	require.NoError(t, err)
	return user
}
