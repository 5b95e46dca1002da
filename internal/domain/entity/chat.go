package entity

import (
	"time"

	"helphand/pkg/errors"
)

const (
	ChatStatusActive    = "active"
	ChatStatusCompleted = "completed"
	ChatStatusCancelled = "cancelled"
)

const (
	RoleRequester = "Requester"
	RoleHelper    = "Helper"
)

type Participants struct {
	HelperID    string `json:"helper_id" firestore:"helperId"`
	RequesterID string `json:"requester_id" firestore:"requesterId"`
}

type LastMessage struct {
	Text      string    `json:"text" firestore:"text"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type Chat struct {
	ID                string               `json:"id" firestore:"id"`
	RequestID         string               `json:"request_id" firestore:"requestId"`
	Participants      Participants         `json:"participants" firestore:"participants"`
	Status            string               `json:"status" firestore:"status"`
	CreatedAt         time.Time            `json:"created_at" firestore:"createdAt"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`
	LastMessage       *LastMessage         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount       map[string]int       `json:"unread_count" firestore:"unreadCount"`
	LastReadTimestamp map[string]time.Time `json:"last_read_timestamp" firestore:"lastReadTimestamp"`
}

// ChatID is the deterministic document id of the chat pairing helperID with
// requestID, so a second claim by the same helper addresses the same document.
func ChatID(requestID, helperID string) string {
	return requestID + "_" + helperID
}

func NewChat(requestID, helperID, requesterID string, now time.Time) *Chat {
	return &Chat{
		ID:        ChatID(requestID, helperID),
		RequestID: requestID,
		Participants: Participants{
			HelperID:    helperID,
			RequesterID: requesterID,
		},
		Status:            ChatStatusActive,
		CreatedAt:         now,
		UnreadCount:       map[string]int{helperID: 0, requesterID: 0},
		LastReadTimestamp: map[string]time.Time{},
	}
}

func (c *Chat) IsActive() bool {
	return c.Status == ChatStatusActive
}

// EnsureActive guards every write into the chat.
func (c *Chat) EnsureActive() error {
	if !c.IsActive() {
		return errors.ChatEnded()
	}
	return nil
}

func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (c.Participants.HelperID == userID || c.Participants.RequesterID == userID)
}

func (c *Chat) EnsureParticipant(userID string) error {
	if !c.IsParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}
	return nil
}

// RoleOf names the side userID plays in the chat.
func (c *Chat) RoleOf(userID string) string {
	switch userID {
	case c.Participants.RequesterID:
		return RoleRequester
	case c.Participants.HelperID:
		return RoleHelper
	}
	return ""
}

func (c *Chat) OtherParticipant(userID string) string {
	if userID == c.Participants.HelperID {
		return c.Participants.RequesterID
	}
	return c.Participants.HelperID
}

func (c *Chat) ParticipantIDs() []string {
	return []string{c.Participants.RequesterID, c.Participants.HelperID}
}

func (c *Chat) Complete(now time.Time) error {
	if err := c.EnsureActive(); err != nil {
		return err
	}
	c.Status = ChatStatusCompleted
	c.CompletedAt = &now
	return nil
}

func (c *Chat) Cancel() error {
	if err := c.EnsureActive(); err != nil {
		return err
	}
	c.Status = ChatStatusCancelled
	return nil
}

// RecordMessage stores the preview and counts msg as unread for every
// participant that has not read it.
func (c *Chat) RecordMessage(msg *Message) {
	c.LastMessage = &LastMessage{Text: msg.Text, Timestamp: msg.Timestamp}
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	for _, participantID := range c.ParticipantIDs() {
		if msg.IsUnreadBy(participantID) {
			c.UnreadCount[participantID]++
		}
	}
}

func (c *Chat) MarkRead(userID string, now time.Time) {
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	if c.LastReadTimestamp == nil {
		c.LastReadTimestamp = make(map[string]time.Time)
	}
	c.UnreadCount[userID] = 0
	c.LastReadTimestamp[userID] = now
}

func (c *Chat) UnreadFor(userID string) int {
	return c.UnreadCount[userID]
}
