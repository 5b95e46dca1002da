package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/internal/infrastructure/ratelimit"
	"helphand/pkg/errors"
	"helphand/pkg/logger"
	"helphand/pkg/retry"
)

// MaxImageBytes is the largest image accepted for upload.
const MaxImageBytes = 400 * 1024

type MessageUseCase struct {
	store       repository.Store
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	imageHost   ImageHost
	unread      *UnreadUseCase
	rateLimiter *ratelimit.RateLimiter
	retry       retry.Policy
	now         clock
}

func NewMessageUseCase(
	store repository.Store,
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	imageHost ImageHost,
	unread *UnreadUseCase,
	rateLimiter *ratelimit.RateLimiter,
	policy retry.Policy,
) *MessageUseCase {
	return &MessageUseCase{
		store:       store,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		imageHost:   imageHost,
		unread:      unread,
		rateLimiter: rateLimiter,
		retry:       policy,
		now:         time.Now,
	}
}

type SendMessageInput struct {
	ChatID   string
	Text     string
	ImageURL string
}

type SendImageInput struct {
	ChatID      string
	Data        []byte
	Filename    string
	ContentType string
}

// Send appends a message, updates the chat preview and bumps the other
// participant's unread counter in one transaction.
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" && input.ImageURL == "" {
		return nil, errors.Validation("Message text or image is required")
	}

	allowed, waitTime := uc.rateLimiter.Allow(senderID, ActionSendMessage)
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", senderID, waitTime)
		return nil, errors.TooManyRequests(fmt.Sprintf("You are sending messages too quickly. Please wait %d seconds", int(waitTime.Seconds())+1))
	}

	msgType := entity.MessageTypeText
	if input.ImageURL != "" {
		msgType = entity.MessageTypeImage
		if text == "" {
			text = entity.ImagePlaceholderText
		}
	}

	var sent *entity.Message
	var recipientID string
	now := uc.now()

	err := uc.retry.Do(ctx, "SendMessage", func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			chat, err := tx.GetChat(input.ChatID)
			if err != nil {
				return err
			}
			if err := chat.EnsureParticipant(senderID); err != nil {
				return err
			}
			if err := chat.EnsureActive(); err != nil {
				return err
			}

			msg := &entity.Message{
				ChatID:    chat.ID,
				SenderID:  senderID,
				Type:      msgType,
				Text:      text,
				ImageURL:  input.ImageURL,
				Timestamp: now,
				ReadBy:    []string{senderID},
			}
			chat.RecordMessage(msg)

			if err := tx.CreateMessage(msg); err != nil {
				return err
			}
			if err := tx.SetChat(chat); err != nil {
				return err
			}
			sent = msg
			recipientID = chat.OtherParticipant(senderID)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.unread.Publish(ctx, recipientID)
	return sent, nil
}

// SendImage uploads the image and sends it as a message. Oversized images
// are rejected before anything leaves the server.
func (uc *MessageUseCase) SendImage(ctx context.Context, senderID string, input SendImageInput) (*entity.Message, error) {
	if len(input.Data) == 0 {
		return nil, errors.Validation("Image is required")
	}
	if len(input.Data) > MaxImageBytes {
		return nil, errors.PayloadTooLarge(fmt.Sprintf("Image is too large. The maximum size is %d KB", MaxImageBytes/1024))
	}
	if uc.imageHost == nil {
		return nil, errors.Internal("Image uploads are not configured", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if err := chat.EnsureParticipant(senderID); err != nil {
		return nil, err
	}
	if err := chat.EnsureActive(); err != nil {
		return nil, err
	}

	allowed, _ := uc.rateLimiter.Allow(senderID, ActionUploadImage)
	if !allowed {
		return nil, errors.TooManyRequests("You are uploading images too quickly")
	}

	filename := input.Filename
	if filename == "" {
		filename = uuid.New().String()
	}

	url, err := uc.imageHost.Upload(ctx, input.Data, filename, input.ContentType)
	if err != nil {
		logger.Error("Image upload for chat %s failed: %v", input.ChatID, err)
		return nil, errors.UploadFailed("Failed to upload image", err)
	}

	return uc.Send(ctx, senderID, SendMessageInput{ChatID: input.ChatID, ImageURL: url})
}

// MarkRead records that userID has seen every message in the chat. Calling
// it again changes nothing but the read timestamp.
func (uc *MessageUseCase) MarkRead(ctx context.Context, chatID, userID string) (int, error) {
	marked := 0

	err := uc.retry.Do(ctx, "MarkRead", func(ctx context.Context) error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			marked = 0

			chat, err := tx.GetChat(chatID)
			if err != nil {
				return err
			}
			if err := chat.EnsureParticipant(userID); err != nil {
				return err
			}
			if err := chat.EnsureActive(); err != nil {
				return err
			}

			messages, err := tx.ListMessages(chatID)
			if err != nil {
				return err
			}

			for _, msg := range messages {
				if msg.IsReadBy(userID) {
					continue
				}
				if err := tx.AddReader(msg.ID, userID); err != nil {
					return err
				}
				marked++
			}

			chat.MarkRead(userID, uc.now())
			return tx.SetChat(chat)
		})
	})
	if err != nil {
		return 0, err
	}

	if marked > 0 {
		logger.Debug("Marked %d messages read in chat %s for %s", marked, chatID, userID)
	}
	uc.unread.Publish(ctx, userID)
	return marked, nil
}

// List returns the thread oldest first.
func (uc *MessageUseCase) List(ctx context.Context, chatID, callerID string) ([]*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := chat.EnsureParticipant(callerID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByChat(ctx, chatID)
	if err == nil {
		return messages, nil
	}
	if !repository.IsIndexNotReady(err) {
		return nil, err
	}

	logger.Debug("Message index not ready for chat %s, sorting in memory", chatID)
	messages, err = uc.messageRepo.ListByChatUnordered(ctx, chatID)
	if err != nil {
		return nil, err
	}
	entity.SortMessages(messages)
	return messages, nil
}
