package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/adapter/repository/memory"
	"helphand/internal/domain/entity"
	"helphand/pkg/errors"
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []*MessagesSnapshot
	chats     []*entity.Chat
}

func (s *recordingSink) sink(eventType string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch eventType {
	case EventMessagesSnapshot:
		s.snapshots = append(s.snapshots, payload.(*MessagesSnapshot))
	case EventChatUpdate:
		s.chats = append(s.chats, payload.(*entity.Chat))
	}
}

func (s *recordingSink) lastSnapshot() *MessagesSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}

func (s *recordingSink) lastChat() *entity.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chats) == 0 {
		return nil
	}
	return s.chats[len(s.chats)-1]
}

func TestWatch_MarksIncomingMessagesRead(t *testing.T) {
	env := newTestEnv(t)
	_, chat := env.openChat(t)

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()

	rec := &recordingSink{}
	require.NoError(t, env.subUC.Watch(ctx, chat.ID, "U2", rec.sink))

	msg, err := env.messageUC.Send(env.ctx, "U1", SendMessageInput{ChatID: chat.ID, Text: "are you there?"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return env.chat(t, chat.ID).UnreadFor("U2") == 0 &&
			len(env.store.MessagesOf(chat.ID)) == 1 &&
			env.store.MessagesOf(chat.ID)[0].IsReadBy("U2")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		snap := rec.lastSnapshot()
		return snap != nil && len(snap.Messages) == 1 && snap.Messages[0].ID == msg.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_PushesChatUpdates(t *testing.T) {
	env := newTestEnv(t)
	_, chat := env.openChat(t)

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()

	rec := &recordingSink{}
	require.NoError(t, env.subUC.Watch(ctx, chat.ID, "U1", rec.sink))

	_, err := env.chatUC.Leave(env.ctx, chat.ID, "U2")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		c := rec.lastChat()
		return c != nil && c.Status == entity.ChatStatusCancelled
	}, 2*time.Second, 10*time.Millisecond)

	// Announcements in an ended chat stay unread; the chat no longer counts.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, env.chat(t, chat.ID).UnreadFor("U1"))
}

func TestWatch_FallsBackToUnorderedListener(t *testing.T) {
	env := newTestEnv(t)
	_, chat := env.openChat(t)
	env.store.DropIndex("messages")

	now := env.clock.Now()
	env.store.PutMessage(&entity.Message{ID: "late", ChatID: chat.ID, SenderID: "U2", Timestamp: now.Add(time.Minute), ReadBy: []string{"U2"}})
	env.store.PutMessage(&entity.Message{ID: "early", ChatID: chat.ID, SenderID: "U2", Timestamp: now, ReadBy: []string{"U2"}})

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()

	rec := &recordingSink{}
	require.NoError(t, env.subUC.Watch(ctx, chat.ID, "U2", rec.sink))

	assert.Eventually(t, func() bool {
		snap := rec.lastSnapshot()
		return snap != nil && len(snap.Messages) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, ids(rec.lastSnapshot().Messages))
}

func TestWatch_ListenerErrorKeepsLastSnapshot(t *testing.T) {
	env := newTestEnv(t)
	_, chat := env.openChat(t)
	_, err := env.messageUC.Send(env.ctx, "U2", SendMessageInput{ChatID: chat.ID, Text: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()

	rec := &recordingSink{}
	require.NoError(t, env.subUC.Watch(ctx, chat.ID, "U2", rec.sink))
	assert.Eventually(t, func() bool {
		return rec.lastSnapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)

	env.store.InjectError(memory.FaultWatch, status.Error(codes.Unavailable, "listener dropped"))
	env.store.InjectError(memory.FaultWatch, status.Error(codes.Unavailable, "listener dropped"))
	_, err = env.messageUC.Send(env.ctx, "U2", SendMessageInput{ChatID: chat.ID, Text: "second"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	snap := rec.lastSnapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Messages, 1)
}

func TestWatch_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, chat := env.openChat(t)

	err := env.subUC.Watch(env.ctx, chat.ID, "U9", func(string, interface{}) {})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	err = env.subUC.Watch(env.ctx, "missing", "U1", func(string, interface{}) {})
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}
