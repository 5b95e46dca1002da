// Package memory is an in-process document store with the same contracts as
// the Firestore adapters. It backs the test suite and STORE_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

// Fault points accepted by InjectError.
const (
	FaultCommit    = "commit"
	FaultIncrement = "increment"
	FaultWatch     = "watch"
	// FaultAck applies the commit and then reports the error, like an RPC
	// whose response was lost.
	FaultAck = "ack"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]*entity.User
	requests map[string]*entity.Request
	chats    map[string]*entity.Chat
	messages map[string]*entity.Message

	missingIndexes map[string]bool
	faults         map[string][]error
	watchers       map[string][]chan struct{}
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]*entity.User),
		requests:       make(map[string]*entity.Request),
		chats:          make(map[string]*entity.Chat),
		messages:       make(map[string]*entity.Message),
		missingIndexes: make(map[string]bool),
		faults:         make(map[string][]error),
		watchers:       make(map[string][]chan struct{}),
	}
}

// DropIndex makes ordered queries on collection fail the way Firestore does
// while a composite index is still building.
func (s *Store) DropIndex(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missingIndexes[collection] = true
}

func (s *Store) RestoreIndex(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.missingIndexes, collection)
}

// InjectError queues err to be returned by the next operation at point.
func (s *Store) InjectError(point string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[point] = append(s.faults[point], err)
}

func (s *Store) takeFault(point string) error {
	queue := s.faults[point]
	if len(queue) == 0 {
		return nil
	}
	s.faults[point] = queue[1:]
	return queue[0]
}

func (s *Store) indexError(collection string) error {
	if s.missingIndexes[collection] {
		return errors.Internal("Failed to run ordered query",
			status.Error(codes.FailedPrecondition, "The query requires an index"))
	}
	return nil
}

// Seed helpers write documents directly, bypassing transactions.

func (s *Store) PutUser(user *entity.User) {
	s.mu.Lock()
	s.users[user.ID] = cloneUser(user)
	s.mu.Unlock()
}

func (s *Store) PutRequest(req *entity.Request) {
	s.mu.Lock()
	s.requests[req.ID] = cloneRequest(req)
	s.mu.Unlock()
}

func (s *Store) PutChat(chat *entity.Chat) {
	s.mu.Lock()
	s.chats[chat.ID] = cloneChat(chat)
	s.mu.Unlock()
	s.notify(chat.ID)
}

func (s *Store) PutMessage(msg *entity.Message) {
	s.mu.Lock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	s.messages[msg.ID] = cloneMessage(msg)
	s.mu.Unlock()
	s.notify(msg.ChatID)
}

// ChatCount reports how many chats reference requestID.
func (s *Store) ChatCount(requestID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, chat := range s.chats {
		if chat.RequestID == requestID {
			n++
		}
	}
	return n
}

// MessagesOf returns a chat's messages ordered by timestamp.
func (s *Store) MessagesOf(chatID string) []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.messagesOfLocked(chatID)
	entity.SortMessages(messages)
	return messages
}

func (s *Store) messagesOfLocked(chatID string) []*entity.Message {
	var messages []*entity.Message
	for _, msg := range s.messages {
		if msg.ChatID == chatID {
			messages = append(messages, cloneMessage(msg))
		}
	}
	return messages
}

func (s *Store) subscribe(chatID string) chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[chatID] = append(s.watchers[chatID], ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) unsubscribe(chatID string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.watchers[chatID]
	for i, c := range list {
		if c == ch {
			s.watchers[chatID] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

func (s *Store) notify(chatIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chatIDs {
		for _, ch := range s.watchers[id] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// RunTransaction serialises transactions behind the store lock. Writes are
// buffered and applied only when fn succeeds and every write is valid.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	tx := &memoryTx{store: s}
	err := fn(ctx, tx)
	if err == nil {
		err = s.takeFault(FaultCommit)
	}
	if err == nil {
		err = tx.commit()
	}
	var ackErr error
	if err == nil {
		ackErr = s.takeFault(FaultAck)
	}
	touched := tx.touched
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(touched...)
	return ackErr
}

type memoryTx struct {
	store   *Store
	writes  []func()
	checks  []func() error
	touched []string
	wrote   bool
}

func (t *memoryTx) read() error {
	if t.wrote {
		return errors.Internal("Transaction reads must precede writes", nil)
	}
	return nil
}

func (t *memoryTx) GetUser(id string) (*entity.User, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	user, ok := t.store.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return cloneUser(user), nil
}

func (t *memoryTx) GetRequest(id string) (*entity.Request, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	req, ok := t.store.requests[id]
	if !ok {
		return nil, errors.NotFound("Request", nil)
	}
	return cloneRequest(req), nil
}

func (t *memoryTx) GetChat(id string) (*entity.Chat, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	chat, ok := t.store.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(chat), nil
}

func (t *memoryTx) ListMessages(chatID string) ([]*entity.Message, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	return t.store.messagesOfLocked(chatID), nil
}

func (t *memoryTx) write(chatID string, check func() error, apply func()) {
	t.wrote = true
	if check != nil {
		t.checks = append(t.checks, check)
	}
	t.writes = append(t.writes, apply)
	if chatID != "" {
		t.touched = append(t.touched, chatID)
	}
}

func (t *memoryTx) CreateChat(chat *entity.Chat) error {
	c := cloneChat(chat)
	t.write(c.ID, func() error {
		if _, exists := t.store.chats[c.ID]; exists {
			return errors.Conflict("Document already exists")
		}
		return nil
	}, func() {
		t.store.chats[c.ID] = c
	})
	return nil
}

func (t *memoryTx) SetChat(chat *entity.Chat) error {
	c := cloneChat(chat)
	t.write(c.ID, nil, func() {
		t.store.chats[c.ID] = c
	})
	return nil
}

func (t *memoryTx) SetRequest(req *entity.Request) error {
	r := cloneRequest(req)
	t.write("", nil, func() {
		t.store.requests[r.ID] = r
	})
	return nil
}

func (t *memoryTx) CreateMessage(msg *entity.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	m := cloneMessage(msg)
	t.write(m.ChatID, func() error {
		if _, exists := t.store.messages[m.ID]; exists {
			return errors.Conflict("Document already exists")
		}
		return nil
	}, func() {
		t.store.messages[m.ID] = m
	})
	return nil
}

func (t *memoryTx) AddReader(messageID, userID string) error {
	var chatID string
	if msg, ok := t.store.messages[messageID]; ok {
		chatID = msg.ChatID
	}
	t.write(chatID, func() error {
		if _, ok := t.store.messages[messageID]; !ok {
			return errors.NotFound("Message", nil)
		}
		return nil
	}, func() {
		t.store.messages[messageID].MarkReadBy(userID)
	})
	return nil
}

func (t *memoryTx) IncrementCounter(userID, field string, delta int) error {
	t.write("", func() error {
		if err := t.store.takeFault(FaultIncrement); err != nil {
			return err
		}
		if _, ok := t.store.users[userID]; !ok {
			return errors.NotFound("User", nil)
		}
		return nil
	}, func() {
		incrementField(t.store.users[userID], field, delta)
	})
	return nil
}

func (t *memoryTx) commit() error {
	for _, check := range t.checks {
		if err := check(); err != nil {
			return err
		}
	}
	for _, apply := range t.writes {
		apply()
	}
	return nil
}

func incrementField(user *entity.User, field string, delta int) {
	switch field {
	case entity.CounterTrophies:
		user.Trophies += delta
	case entity.CounterRequestsMade:
		user.RequestsMade += delta
	case entity.CounterRequestsHelped:
		user.RequestsHelped += delta
	}
	user.UpdatedAt = time.Now()
}

func sortRequestsNewestFirst(requests []*entity.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}

func sortChatsNewestFirst(chats []*entity.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
}
