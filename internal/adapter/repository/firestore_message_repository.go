package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) byChat(chatID string) firestore.Query {
	return r.client.Collection(messagesCollection).Where("chatId", "==", chatID)
}

func (r *firestoreMessageRepository) ListByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	docs, err := r.byChat(chatID).OrderBy("timestamp", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return decodeMessages(docs), nil
}

func (r *firestoreMessageRepository) ListByChatUnordered(ctx context.Context, chatID string) ([]*entity.Message, error) {
	docs, err := r.byChat(chatID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return decodeMessages(docs), nil
}

func (r *firestoreMessageRepository) Latest(ctx context.Context, chatID string) (*entity.Message, error) {
	iter := r.byChat(chatID).OrderBy("timestamp", firestore.Desc).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Message", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to query latest message", err)
	}

	messages := decodeMessages([]*firestore.DocumentSnapshot{doc})
	if len(messages) == 0 {
		return nil, errors.NotFound("Message", nil)
	}
	return messages[0], nil
}

func (r *firestoreMessageRepository) WatchMessages(ctx context.Context, chatID string, ordered bool, fn func([]*entity.Message)) error {
	query := r.byChat(chatID)
	if ordered {
		query = query.OrderBy("timestamp", firestore.Asc)
	}

	iter := query.Snapshots(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		fn(decodeMessages(docs))
	}
}

func decodeMessages(docs []*firestore.DocumentSnapshot) []*entity.Message {
	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error parsing message %s: %v", doc.Ref.ID, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}
	return messages
}
