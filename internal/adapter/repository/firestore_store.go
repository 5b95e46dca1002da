package repository

import (
	"context"
	stderrors "errors"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

type firestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) repository.Store {
	return &firestoreStore{
		client: client,
	}
}

func (s *firestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: tx, ctx: ctx})
	})
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if status.Code(err) == codes.AlreadyExists {
		return errors.Conflict("Document already exists")
	}
	if status.Code(err) == codes.NotFound {
		return errors.NotFound("Document", err)
	}
	return errors.Internal("Transaction failed", err)
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
	ctx    context.Context
}

func (t *firestoreTx) get(collection, id, resource string, out interface{}) error {
	doc, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound(resource, nil)
		}
		return err
	}
	if err := doc.DataTo(out); err != nil {
		return errors.Internal("Failed to parse "+resource+" data", err)
	}
	return nil
}

func (t *firestoreTx) GetUser(id string) (*entity.User, error) {
	var user entity.User
	if err := t.get(usersCollection, id, "User", &user); err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}

func (t *firestoreTx) GetRequest(id string) (*entity.Request, error) {
	var req entity.Request
	if err := t.get(requestsCollection, id, "Request", &req); err != nil {
		return nil, err
	}
	req.ID = id
	return &req, nil
}

func (t *firestoreTx) GetChat(id string) (*entity.Chat, error) {
	var chat entity.Chat
	if err := t.get(chatsCollection, id, "Chat", &chat); err != nil {
		return nil, err
	}
	chat.ID = id
	return &chat, nil
}

func (t *firestoreTx) ListMessages(chatID string) ([]*entity.Message, error) {
	query := t.client.Collection(messagesCollection).Where("chatId", "==", chatID)
	docs, err := t.tx.Documents(query).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeMessages(docs), nil
}

func (t *firestoreTx) CreateChat(chat *entity.Chat) error {
	return t.tx.Create(t.client.Collection(chatsCollection).Doc(chat.ID), chat)
}

func (t *firestoreTx) SetChat(chat *entity.Chat) error {
	return t.tx.Set(t.client.Collection(chatsCollection).Doc(chat.ID), chat)
}

func (t *firestoreTx) SetRequest(req *entity.Request) error {
	return t.tx.Set(t.client.Collection(requestsCollection).Doc(req.ID), req)
}

func (t *firestoreTx) CreateMessage(msg *entity.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	return t.tx.Create(t.client.Collection(messagesCollection).Doc(msg.ID), msg)
}

func (t *firestoreTx) AddReader(messageID, userID string) error {
	return t.tx.Update(t.client.Collection(messagesCollection).Doc(messageID), []firestore.Update{
		{Path: "readBy", Value: firestore.ArrayUnion(userID)},
	})
}

func (t *firestoreTx) IncrementCounter(userID, field string, delta int) error {
	return t.tx.Update(t.client.Collection(usersCollection).Doc(userID), []firestore.Update{
		{Path: field, Value: firestore.Increment(delta)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}
