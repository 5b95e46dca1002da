package entity

import (
	"sort"
	"time"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeSystem = "system"
)

// SystemSenderID authors lifecycle announcements.
const SystemSenderID = "system"

const ImagePlaceholderText = "📷 Image"

type Message struct {
	ID        string    `json:"id" firestore:"id"`
	ChatID    string    `json:"chat_id" firestore:"chatId"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Type      string    `json:"type" firestore:"type"`
	Text      string    `json:"text,omitempty" firestore:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
	ReadBy    []string  `json:"read_by" firestore:"readBy"`
}

// NewSystemMessage builds an announcement already read by the actor whose
// operation produced it.
func NewSystemMessage(chatID, text, actorID string, now time.Time) *Message {
	return &Message{
		ChatID:    chatID,
		SenderID:  SystemSenderID,
		Type:      MessageTypeSystem,
		Text:      text,
		Timestamp: now,
		ReadBy:    []string{actorID},
	}
}

func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}

func (m *Message) IsReadBy(userID string) bool {
	for _, reader := range m.ReadBy {
		if reader == userID {
			return true
		}
	}
	return false
}

// IsUnreadBy reports whether the message counts towards userID's unread total.
func (m *Message) IsUnreadBy(userID string) bool {
	return m.SenderID != userID && !m.IsReadBy(userID)
}

// MarkReadBy adds userID to ReadBy and reports whether anything changed.
func (m *Message) MarkReadBy(userID string) bool {
	if m.IsReadBy(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}

// SortMessages orders messages by timestamp ascending, ties broken by id so
// the ordered query and the in-memory fallback agree.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// CountUnread re-derives a user's unread count from the readBy sets.
func CountUnread(messages []*Message, userID string) int {
	n := 0
	for _, m := range messages {
		if m.IsUnreadBy(userID) {
			n++
		}
	}
	return n
}
