package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helphand/pkg/errors"
)

func TestNewChatUsesCompositeID(t *testing.T) {
	chat := NewChat("R1", "U2", "U1", time.Now())

	assert.Equal(t, "R1_U2", chat.ID)
	assert.Equal(t, ChatStatusActive, chat.Status)
	assert.Equal(t, RoleHelper, chat.RoleOf("U2"))
	assert.Equal(t, RoleRequester, chat.RoleOf("U1"))
	assert.Equal(t, "", chat.RoleOf("U3"))
	assert.Equal(t, "U1", chat.OtherParticipant("U2"))
}

func TestTerminalChatsRejectTransitions(t *testing.T) {
	chat := NewChat("R1", "U2", "U1", time.Now())
	require.NoError(t, chat.Complete(time.Now()))

	assert.True(t, errors.Is(chat.Complete(time.Now()), "CHAT_ENDED"))
	assert.True(t, errors.Is(chat.Cancel(), "CHAT_ENDED"))
	assert.True(t, errors.Is(chat.EnsureActive(), "CHAT_ENDED"))
	assert.Equal(t, ChatStatusCompleted, chat.Status)
}

func TestRecordMessageCountsUnreadForRecipientOnly(t *testing.T) {
	now := time.Now()
	chat := NewChat("R1", "U2", "U1", now)

	chat.RecordMessage(&Message{SenderID: "U1", Text: "hello", Timestamp: now, ReadBy: []string{"U1"}})
	chat.RecordMessage(NewSystemMessage(chat.ID, "Helper has left the chat.", "U2", now))

	assert.Equal(t, 1, chat.UnreadFor("U2"))
	assert.Equal(t, 1, chat.UnreadFor("U1"))
	assert.Equal(t, "Helper has left the chat.", chat.LastMessage.Text)

	chat.MarkRead("U2", now)
	assert.Equal(t, 0, chat.UnreadFor("U2"))
	assert.Equal(t, now, chat.LastReadTimestamp["U2"])
}
