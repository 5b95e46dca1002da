package memory

import (
	"context"

	"github.com/google/uuid"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[user.ID]; exists {
		return errors.Conflict("User profile already exists")
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return cloneUser(user), nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[user.ID]
	if !ok {
		return errors.NotFound("User", nil)
	}
	stored.DisplayName = user.DisplayName
	stored.Age = user.Age
	stored.Gender = user.Gender
	stored.ProfileSet = user.ProfileSet
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *userRepository) IncrementCounter(ctx context.Context, userID, field string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFault(FaultIncrement); err != nil {
		return err
	}
	user, ok := r.s.users[userID]
	if !ok {
		return errors.Internal("Failed to increment "+field, errors.NotFound("User", nil))
	}
	incrementField(user, field, delta)
	return nil
}

type requestRepository struct {
	s *Store
}

func NewRequestRepository(s *Store) repository.RequestRepository {
	return &requestRepository{s: s}
}

func (r *requestRepository) Create(ctx context.Context, req *entity.Request) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	r.s.PutRequest(req)
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, errors.NotFound("Request", nil)
	}
	return cloneRequest(req), nil
}

func (r *requestRepository) ListBrowsable(ctx context.Context) ([]*entity.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.indexError("requests"); err != nil {
		return nil, err
	}
	var requests []*entity.Request
	for _, req := range r.s.requests {
		if req.IsBrowsable() {
			requests = append(requests, cloneRequest(req))
		}
	}
	sortRequestsNewestFirst(requests)
	return requests, nil
}

func (r *requestRepository) ListAll(ctx context.Context) ([]*entity.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	requests := make([]*entity.Request, 0, len(r.s.requests))
	for _, req := range r.s.requests {
		requests = append(requests, cloneRequest(req))
	}
	return requests, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*entity.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var requests []*entity.Request
	for _, req := range r.s.requests {
		if req.RequesterID == requesterID {
			requests = append(requests, cloneRequest(req))
		}
	}
	return requests, nil
}

type chatRepository struct {
	s *Store
}

func NewChatRepository(s *Store) repository.ChatRepository {
	return &chatRepository{s: s}
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	chat, ok := r.s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(chat), nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.indexError("chats"); err != nil {
		return nil, err
	}
	chats := r.listLocked(userID)
	sortChatsNewestFirst(chats)
	return chats, nil
}

func (r *chatRepository) ListByUserUnordered(ctx context.Context, userID string) ([]*entity.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listLocked(userID), nil
}

func (r *chatRepository) listLocked(userID string) []*entity.Chat {
	var chats []*entity.Chat
	for _, chat := range r.s.chats {
		if chat.IsParticipant(userID) {
			chats = append(chats, cloneChat(chat))
		}
	}
	return chats
}

func (r *chatRepository) WatchChat(ctx context.Context, chatID string, fn func(*entity.Chat)) error {
	ch := r.s.subscribe(chatID)
	defer r.s.unsubscribe(chatID, ch)

	for {
		r.s.mu.Lock()
		err := r.s.takeFault(FaultWatch)
		chat, ok := r.s.chats[chatID]
		if ok {
			chat = cloneChat(chat)
		}
		r.s.mu.Unlock()

		if err != nil {
			return err
		}
		if ok {
			fn(chat)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ch:
		}
	}
}

type messageRepository struct {
	s *Store
}

func NewMessageRepository(s *Store) repository.MessageRepository {
	return &messageRepository{s: s}
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.indexError("messages"); err != nil {
		return nil, err
	}
	messages := r.s.messagesOfLocked(chatID)
	entity.SortMessages(messages)
	return messages, nil
}

func (r *messageRepository) ListByChatUnordered(ctx context.Context, chatID string) ([]*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.messagesOfLocked(chatID), nil
}

func (r *messageRepository) Latest(ctx context.Context, chatID string) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.indexError("messages"); err != nil {
		return nil, err
	}
	messages := r.s.messagesOfLocked(chatID)
	if len(messages) == 0 {
		return nil, errors.NotFound("Message", nil)
	}
	entity.SortMessages(messages)
	return messages[len(messages)-1], nil
}

func (r *messageRepository) WatchMessages(ctx context.Context, chatID string, ordered bool, fn func([]*entity.Message)) error {
	ch := r.s.subscribe(chatID)
	defer r.s.unsubscribe(chatID, ch)

	for {
		r.s.mu.Lock()
		err := r.s.takeFault(FaultWatch)
		if err == nil && ordered {
			err = r.s.indexError("messages")
		}
		messages := r.s.messagesOfLocked(chatID)
		r.s.mu.Unlock()

		if err != nil {
			return err
		}
		if ordered {
			entity.SortMessages(messages)
		}
		fn(messages)

		select {
		case <-ctx.Done():
			return nil
		case <-ch:
		}
	}
}
