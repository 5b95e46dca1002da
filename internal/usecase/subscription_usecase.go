package usecase

import (
	"context"
	"sync"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
	"helphand/pkg/logger"
)

// Sink receives the events produced by a chat subscription.
type Sink func(eventType string, payload interface{})

type MessagesSnapshot struct {
	ChatID   string            `json:"chat_id"`
	Messages []*entity.Message `json:"messages"`
}

// SubscriptionUseCase keeps an open chat screen in sync with the store.
type SubscriptionUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	messages    *MessageUseCase
}

func NewSubscriptionUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	messages *MessageUseCase,
) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		messages:    messages,
	}
}

// Watch streams the chat document and its messages to sink until ctx is
// done. New messages from the other side are marked read while the viewer
// is watching. Listener errors are logged and the last snapshot stands.
func (uc *SubscriptionUseCase) Watch(ctx context.Context, chatID, viewerID string, sink Sink) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if err := chat.EnsureParticipant(viewerID); err != nil {
		return err
	}

	w := &chatWatch{
		uc:       uc,
		chatID:   chatID,
		viewerID: viewerID,
		sink:     sink,
		active:   chat.IsActive(),
	}

	go w.watchChat(ctx)
	go w.watchMessages(ctx)
	return nil
}

type chatWatch struct {
	uc       *SubscriptionUseCase
	chatID   string
	viewerID string
	sink     Sink

	mu     sync.Mutex
	active bool
}

func (w *chatWatch) isActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *chatWatch) watchChat(ctx context.Context) {
	err := w.uc.chatRepo.WatchChat(ctx, w.chatID, func(chat *entity.Chat) {
		w.mu.Lock()
		w.active = chat.IsActive()
		w.mu.Unlock()
		w.sink(EventChatUpdate, chat)
	})
	if err != nil {
		logger.Warn("Chat listener for %s stopped: %v", w.chatID, err)
	}
}

func (w *chatWatch) watchMessages(ctx context.Context) {
	ordered := true
	for {
		err := w.uc.messageRepo.WatchMessages(ctx, w.chatID, ordered, w.onMessages(ctx, ordered))
		if err == nil {
			return
		}
		if ordered && repository.IsIndexNotReady(err) {
			logger.Debug("Message index not ready for chat %s, listening unordered", w.chatID)
			ordered = false
			continue
		}
		logger.Warn("Message listener for %s stopped: %v", w.chatID, err)
		return
	}
}

func (w *chatWatch) onMessages(ctx context.Context, ordered bool) func([]*entity.Message) {
	return func(messages []*entity.Message) {
		if !ordered {
			entity.SortMessages(messages)
		}
		w.sink(EventMessagesSnapshot, &MessagesSnapshot{ChatID: w.chatID, Messages: messages})

		if !w.isActive() || entity.CountUnread(messages, w.viewerID) == 0 {
			return
		}
		if _, err := w.uc.messages.MarkRead(ctx, w.chatID, w.viewerID); err != nil {
			if errors.Is(err, "CHAT_ENDED") {
				w.mu.Lock()
				w.active = false
				w.mu.Unlock()
				return
			}
			logger.Warn("Auto mark-read in chat %s for %s failed: %v", w.chatID, w.viewerID, err)
		}
	}
}
