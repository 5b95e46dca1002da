package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/internal/infrastructure/ratelimit"
	"helphand/pkg/errors"
	"helphand/pkg/logger"
	"helphand/pkg/retry"
)

// Lifecycle announcements written into the thread.
const (
	CompletedMessage = "This chat has been marked as completed. The help request has been fulfilled."
	TrophyMessage    = "🏆 A trophy has been awarded to the helper for their assistance!"
	ReopenedMessage  = "The request is now open for other helpers."
)

func leftMessage(role string) string {
	return fmt.Sprintf("%s has left the chat.", role)
}

type ChatUseCase struct {
	store       repository.Store
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	unread      *UnreadUseCase
	notifier    Notifier
	rateLimiter *ratelimit.RateLimiter
	retry       retry.Policy
	now         clock
}

func NewChatUseCase(
	store repository.Store,
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	unread *UnreadUseCase,
	notifier Notifier,
	rateLimiter *ratelimit.RateLimiter,
	policy retry.Policy,
) *ChatUseCase {
	return &ChatUseCase{
		store:       store,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		unread:      unread,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		retry:       policy,
		now:         time.Now,
	}
}

// ChatSummary is one row of the chat list as seen by a participant.
type ChatSummary struct {
	*entity.Chat
	Role        string              `json:"role"`
	Unread      int                 `json:"unread"`
	LastMessage *entity.LastMessage `json:"last_message,omitempty"`
}

type OpenChatResult struct {
	Chat    *entity.Chat `json:"chat"`
	Created bool         `json:"created"`
}

// OpenOrCreate claims requestID for helperID and opens their chat, or returns
// the chat they already have. The claim and the chat creation commit together.
func (uc *ChatUseCase) OpenOrCreate(ctx context.Context, requestID, helperID string) (*OpenChatResult, error) {
	result := &OpenChatResult{}
	charged := false
	open := func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			result.Chat, result.Created = nil, false

			existing, err := tx.GetChat(entity.ChatID(requestID, helperID))
			if err == nil {
				if err := existing.EnsureActive(); err != nil {
					return err
				}
				result.Chat = existing
				return nil
			}
			if !errors.Is(err, "NOT_FOUND") {
				return err
			}

			req, err := tx.GetRequest(requestID)
			if err != nil {
				return err
			}
			if err := req.Claim(helperID); err != nil {
				return err
			}

			// Only a new claim spends a token; reopening an existing chat is free.
			if !charged {
				allowed, waitTime := uc.rateLimiter.Allow(helperID, ActionClaimRequest)
				if !allowed {
					logger.Warn("OpenOrCreate rate limited: user %s must wait %v", helperID, waitTime)
					return errors.TooManyRequests(fmt.Sprintf("Too many claims. Please wait %d seconds", int(waitTime.Seconds())+1))
				}
				charged = true
			}

			chat := entity.NewChat(requestID, helperID, req.RequesterID, uc.now())
			if err := tx.SetRequest(req); err != nil {
				return err
			}
			if err := tx.CreateChat(chat); err != nil {
				return err
			}
			result.Chat, result.Created = chat, true
			return nil
		})
	}

	err := uc.retry.Do(ctx, "OpenOrCreate", open)
	if errors.Is(err, "CONFLICT") {
		// A concurrent claim by the same helper may have created the chat
		// first; the second pass returns it.
		err = uc.retry.Do(ctx, "OpenOrCreate", open)
	}
	if err != nil {
		logger.Debug("OpenOrCreate %s by %s rejected: %v", requestID, helperID, err)
		return nil, err
	}

	if result.Created {
		if err := uc.userRepo.IncrementCounter(ctx, helperID, entity.CounterRequestsHelped, 1); err != nil {
			logger.BestEffort("increment requestsHelped", helperID, err)
		}
		logger.Info("Chat %s opened for request %s", result.Chat.ID, requestID)
		uc.notify(ctx, result.Chat.Participants.RequesterID, result.Chat)
	}

	return result, nil
}

// Complete closes the chat and fulfils its request. When awardTrophy is set
// the helper gets a trophy afterwards; that step may fail without undoing
// the completion.
func (uc *ChatUseCase) Complete(ctx context.Context, chatID, callerID string, awardTrophy bool) (*entity.Chat, error) {
	var chat *entity.Chat
	// Firestore keeps microseconds; the retry check below compares against
	// the stored value.
	seq := newSequence(uc.now().Truncate(time.Microsecond))
	completedAt := seq.Next()

	err := uc.retry.Do(ctx, "CompleteChat", func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			c, err := tx.GetChat(chatID)
			if err != nil {
				return err
			}
			if err := c.EnsureParticipant(callerID); err != nil {
				return err
			}
			if c.Status == entity.ChatStatusCompleted && c.CompletedAt != nil && c.CompletedAt.Equal(completedAt) {
				// An earlier attempt of this call committed before its
				// response was lost.
				chat = c
				return nil
			}
			if err := c.EnsureActive(); err != nil {
				return err
			}
			if awardTrophy && c.RoleOf(callerID) != entity.RoleRequester {
				return errors.Forbidden("Only the requester can award a trophy", nil)
			}

			req, err := tx.GetRequest(c.RequestID)
			if err != nil {
				return err
			}

			if err := c.Complete(completedAt); err != nil {
				return err
			}
			req.Complete(completedAt)

			msg := entity.NewSystemMessage(c.ID, CompletedMessage, callerID, completedAt)
			c.RecordMessage(msg)

			if err := tx.SetChat(c); err != nil {
				return err
			}
			if err := tx.SetRequest(req); err != nil {
				return err
			}
			if err := tx.CreateMessage(msg); err != nil {
				return err
			}
			chat = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Chat %s completed by %s", chatID, callerID)

	if awardTrophy {
		if awarded, err := uc.awardTrophy(ctx, chatID, callerID, seq.Next()); err != nil {
			logger.BestEffort("award trophy", chat.Participants.HelperID, err)
		} else {
			chat = awarded
		}
	}

	uc.notifyBoth(ctx, chat)
	return chat, nil
}

func (uc *ChatUseCase) awardTrophy(ctx context.Context, chatID, callerID string, at time.Time) (*entity.Chat, error) {
	var chat *entity.Chat
	err := uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.GetChat(chatID)
		if err != nil {
			return err
		}

		msg := entity.NewSystemMessage(c.ID, TrophyMessage, callerID, at)
		c.RecordMessage(msg)

		if err := tx.IncrementCounter(c.Participants.HelperID, entity.CounterTrophies, 1); err != nil {
			return err
		}
		if err := tx.SetChat(c); err != nil {
			return err
		}
		if err := tx.CreateMessage(msg); err != nil {
			return err
		}
		chat = c
		return nil
	})
	return chat, err
}

// Leave cancels the chat from either side and puts the request back on the
// board for other helpers.
func (uc *ChatUseCase) Leave(ctx context.Context, chatID, callerID string) (*entity.Chat, error) {
	var chat *entity.Chat
	now := uc.now()

	err := uc.retry.Do(ctx, "LeaveChat", func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			c, err := tx.GetChat(chatID)
			if err != nil {
				return err
			}
			if err := c.EnsureParticipant(callerID); err != nil {
				return err
			}
			if err := c.Cancel(); err != nil {
				return err
			}

			req, err := tx.GetRequest(c.RequestID)
			if err != nil {
				return err
			}
			req.Release()

			seq := newSequence(now)
			left := entity.NewSystemMessage(c.ID, leftMessage(c.RoleOf(callerID)), callerID, seq.Next())
			reopened := entity.NewSystemMessage(c.ID, ReopenedMessage, callerID, seq.Next())
			c.RecordMessage(left)
			c.RecordMessage(reopened)

			if err := tx.SetChat(c); err != nil {
				return err
			}
			if err := tx.SetRequest(req); err != nil {
				return err
			}
			if err := tx.CreateMessage(left); err != nil {
				return err
			}
			if err := tx.CreateMessage(reopened); err != nil {
				return err
			}
			chat = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Chat %s cancelled by %s, request %s reopened", chatID, callerID, chat.RequestID)
	uc.notifyBoth(ctx, chat)
	return chat, nil
}

func (uc *ChatUseCase) Get(ctx context.Context, chatID, callerID string) (*ChatSummary, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := chat.EnsureParticipant(callerID); err != nil {
		return nil, err
	}
	return uc.summarize(ctx, chat, callerID), nil
}

// List returns the caller's chats from both sides, newest first.
func (uc *ChatUseCase) List(ctx context.Context, userID string) ([]*ChatSummary, error) {
	chats, err := uc.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		if !repository.IsIndexNotReady(err) {
			return nil, err
		}
		logger.Debug("Chat list index not ready, sorting in memory: %v", err)
		chats, err = uc.chatRepo.ListByUserUnordered(ctx, userID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(chats, func(i, j int) bool {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		})
	}

	summaries := make([]*ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, uc.summarize(ctx, chat, userID))
	}
	return summaries, nil
}

func (uc *ChatUseCase) summarize(ctx context.Context, chat *entity.Chat, userID string) *ChatSummary {
	summary := &ChatSummary{
		Chat:        chat,
		Role:        chat.RoleOf(userID),
		Unread:      chat.UnreadFor(userID),
		LastMessage: chat.LastMessage,
	}
	if summary.LastMessage == nil {
		summary.LastMessage = uc.latestPreview(ctx, chat.ID)
	}
	return summary
}

// latestPreview reads the newest message for chats written before the
// preview field existed.
func (uc *ChatUseCase) latestPreview(ctx context.Context, chatID string) *entity.LastMessage {
	msg, err := uc.messageRepo.Latest(ctx, chatID)
	if err != nil {
		if !repository.IsIndexNotReady(err) {
			if !errors.Is(err, "NOT_FOUND") {
				logger.Warn("Failed to load latest message for chat %s: %v", chatID, err)
			}
			return nil
		}
		messages, err := uc.messageRepo.ListByChatUnordered(ctx, chatID)
		if err != nil || len(messages) == 0 {
			return nil
		}
		entity.SortMessages(messages)
		msg = messages[len(messages)-1]
	}

	text := msg.Text
	if text == "" && msg.ImageURL != "" {
		text = entity.ImagePlaceholderText
	}
	return &entity.LastMessage{Text: text, Timestamp: msg.Timestamp}
}

func (uc *ChatUseCase) notify(ctx context.Context, userID string, chat *entity.Chat) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyUser(ctx, userID, EventChatUpdate, chat); err != nil {
		logger.Warn("Failed to push chat update to %s: %v", userID, err)
	}
}

func (uc *ChatUseCase) notifyBoth(ctx context.Context, chat *entity.Chat) {
	for _, userID := range chat.ParticipantIDs() {
		uc.notify(ctx, userID, chat)
		uc.unread.Publish(ctx, userID)
	}
}
