package repository

import (
	"context"

	"helphand/internal/domain/entity"
)

type MessageRepository interface {
	// ListByChat returns messages ordered by timestamp ascending.
	ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error)
	ListByChatUnordered(ctx context.Context, chatID string) ([]*entity.Message, error)
	// Latest returns the most recent message or a NOT_FOUND error.
	Latest(ctx context.Context, chatID string) (*entity.Message, error)
	// WatchMessages calls fn with the full message set on every change until
	// ctx is done or the listener fails. Unordered snapshots are passed as
	// delivered; callers sort.
	WatchMessages(ctx context.Context, chatID string, ordered bool, fn func([]*entity.Message)) error
}
