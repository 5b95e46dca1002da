package repository

import (
	"context"

	"helphand/internal/domain/entity"
)

type ChatRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// ListByUser returns chats where userID is helper or requester, newest first.
	ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error)
	ListByUserUnordered(ctx context.Context, userID string) ([]*entity.Chat, error)
	// WatchChat calls fn with every snapshot of the chat until ctx is done or
	// the listener fails.
	WatchChat(ctx context.Context, chatID string, fn func(*entity.Chat)) error
}
