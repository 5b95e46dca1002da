package usecase

import (
	"context"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/logger"
	"helphand/pkg/retry"
)

// UnreadUseCase aggregates the per-chat unread counters into the badge total.
type UnreadUseCase struct {
	store    repository.Store
	chatRepo repository.ChatRepository
	notifier Notifier
	retry    retry.Policy
}

func NewUnreadUseCase(
	store repository.Store,
	chatRepo repository.ChatRepository,
	notifier Notifier,
	policy retry.Policy,
) *UnreadUseCase {
	return &UnreadUseCase{
		store:    store,
		chatRepo: chatRepo,
		notifier: notifier,
		retry:    policy,
	}
}

type UnreadTotal struct {
	Total  int            `json:"total"`
	ByChat map[string]int `json:"by_chat"`
}

// Total sums userID's counters over every chat they take part in, finished
// ones included.
func (uc *UnreadUseCase) Total(ctx context.Context, userID string) (*UnreadTotal, error) {
	chats, err := uc.chatRepo.ListByUserUnordered(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := &UnreadTotal{ByChat: make(map[string]int)}
	for _, chat := range chats {
		n := chat.UnreadFor(userID)
		if n > 0 {
			total.ByChat[chat.ID] = n
			total.Total += n
		}
	}
	return total, nil
}

// Recount rebuilds both participants' counters from the messages' readBy
// sets. It repairs counters that drifted and is otherwise a no-op.
func (uc *UnreadUseCase) Recount(ctx context.Context, chatID, callerID string) (map[string]int, error) {
	var counts map[string]int

	err := uc.retry.Do(ctx, "RecountUnread", func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			chat, err := tx.GetChat(chatID)
			if err != nil {
				return err
			}
			if err := chat.EnsureParticipant(callerID); err != nil {
				return err
			}
			if err := chat.EnsureActive(); err != nil {
				return err
			}

			messages, err := tx.ListMessages(chatID)
			if err != nil {
				return err
			}

			counts = make(map[string]int)
			for _, participantID := range chat.ParticipantIDs() {
				counts[participantID] = entity.CountUnread(messages, participantID)
			}
			chat.UnreadCount = counts
			return tx.SetChat(chat)
		})
	})
	if err != nil {
		return nil, err
	}

	for userID := range counts {
		uc.Publish(ctx, userID)
	}
	return counts, nil
}

// Publish pushes userID's current total to their connections.
func (uc *UnreadUseCase) Publish(ctx context.Context, userID string) {
	if uc == nil || uc.notifier == nil {
		return
	}

	total, err := uc.Total(ctx, userID)
	if err != nil {
		logger.Warn("Failed to compute unread total for %s: %v", userID, err)
		return
	}
	if err := uc.notifier.NotifyUser(ctx, userID, EventUnreadUpdate, total); err != nil {
		logger.Warn("Failed to push unread update to %s: %v", userID, err)
	}
}
