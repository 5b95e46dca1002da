package usecase

import (
	"context"
	"time"
)

// AuthClient is the identity provider used by the auth middleware and the
// development token route.
type AuthClient interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	GenerateToken(ctx context.Context, uid string) (string, error)
}

// Notifier delivers an event to every live connection held by userID,
// wherever it is attached.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, eventType string, payload interface{}) error
}

// ImageHost stores an uploaded image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// Events pushed to clients.
const (
	EventMessagesSnapshot = "messages_snapshot"
	EventChatUpdate       = "chat_update"
	EventUnreadUpdate     = "unread_update"
)

// Rate limited actions.
const (
	ActionSendMessage  = "send_message"
	ActionClaimRequest = "claim_request"
	ActionUploadImage  = "upload_image"
)

type clock func() time.Time

// sequence hands out strictly increasing timestamps for the messages written
// by a single operation so their order survives a timestamp sort.
type sequence struct {
	next time.Time
}

func newSequence(now time.Time) *sequence {
	return &sequence{next: now}
}

func (s *sequence) Next() time.Time {
	t := s.next
	s.next = s.next.Add(time.Millisecond)
	return t
}
