package repository

import (
	"context"
	"log"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection(chatsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	return decodeChat(doc)
}

func (r *firestoreChatRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Chat, error) {
	chats, err := r.listByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (r *firestoreChatRepository) ListByUserUnordered(ctx context.Context, userID string) ([]*entity.Chat, error) {
	return r.listByUser(ctx, userID, false)
}

// listByUser merges the helper-side and requester-side queries; a user never
// sits on both sides of one chat.
func (r *firestoreChatRepository) listByUser(ctx context.Context, userID string, ordered bool) ([]*entity.Chat, error) {
	var chats []*entity.Chat
	for _, field := range []string{"participants.helperId", "participants.requesterId"} {
		query := r.client.Collection(chatsCollection).Where(field, "==", userID)
		if ordered {
			query = query.OrderBy("createdAt", firestore.Desc)
		}

		docs, err := query.Documents(ctx).GetAll()
		if err != nil {
			log.Printf("Firestore error while fetching chats for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to fetch chats", err)
		}

		for _, doc := range docs {
			chat, err := decodeChat(doc)
			if err != nil {
				log.Printf("Error parsing chat %s for user %s: %v", doc.Ref.ID, userID, err)
				continue
			}
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (r *firestoreChatRepository) WatchChat(ctx context.Context, chatID string, fn func(*entity.Chat)) error {
	iter := r.client.Collection(chatsCollection).Doc(chatID).Snapshots(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !doc.Exists() {
			continue
		}
		chat, err := decodeChat(doc)
		if err != nil {
			log.Printf("Error parsing chat snapshot %s: %v", chatID, err)
			continue
		}
		fn(chat)
	}
}

func decodeChat(doc *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID
	return &chat, nil
}
