package repository

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/domain/entity"
)

// Store runs multi-document operations atomically. fn may be invoked more
// than once when the backend retries on contention, so it must not have side
// effects outside tx.
type Store interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the document view inside a transaction. All reads must happen before
// the first write.
type Tx interface {
	GetUser(id string) (*entity.User, error)
	GetRequest(id string) (*entity.Request, error)
	GetChat(id string) (*entity.Chat, error)
	// ListMessages returns the chat's messages in no particular order.
	ListMessages(chatID string) ([]*entity.Message, error)

	// CreateChat fails with a CONFLICT error when the id is already taken.
	CreateChat(chat *entity.Chat) error
	SetChat(chat *entity.Chat) error
	SetRequest(req *entity.Request) error
	CreateMessage(msg *entity.Message) error
	AddReader(messageID, userID string) error
	IncrementCounter(userID, field string, delta int) error
}

// IsIndexNotReady reports whether an ordered query failed because its
// composite index has not been provisioned yet.
func IsIndexNotReady(err error) bool {
	return status.Code(err) == codes.FailedPrecondition
}
