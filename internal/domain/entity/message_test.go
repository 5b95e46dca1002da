package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkReadByIsIdempotent(t *testing.T) {
	msg := &Message{SenderID: "U1", ReadBy: []string{"U1"}}

	assert.True(t, msg.MarkReadBy("U2"))
	assert.False(t, msg.MarkReadBy("U2"))
	assert.Equal(t, []string{"U1", "U2"}, msg.ReadBy)
}

func TestIsUnreadByIgnoresOwnMessages(t *testing.T) {
	msg := &Message{SenderID: "U1", ReadBy: []string{}}

	assert.False(t, msg.IsUnreadBy("U1"))
	assert.True(t, msg.IsUnreadBy("U2"))
}

func TestSortMessagesIsStableOnTies(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	messages := []*Message{
		{ID: "c", Timestamp: base.Add(time.Second)},
		{ID: "b", Timestamp: base},
		{ID: "a", Timestamp: base},
		{ID: "d", Timestamp: base.Add(-time.Minute)},
	}

	SortMessages(messages)

	var ids []string
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestCountUnread(t *testing.T) {
	messages := []*Message{
		{SenderID: "U1", ReadBy: []string{"U1"}},
		{SenderID: "U1", ReadBy: []string{"U1", "U2"}},
		NewSystemMessage("C1", "completed", "U1", time.Now()),
		{SenderID: "U2", ReadBy: []string{"U2"}},
	}

	assert.Equal(t, 2, CountUnread(messages, "U2"))
	assert.Equal(t, 1, CountUnread(messages, "U1"))
}
