package memory

import (
	"time"

	"helphand/internal/domain/entity"
)

func cloneUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

func cloneRequest(r *entity.Request) *entity.Request {
	c := *r
	if r.HelperID != nil {
		helper := *r.HelperID
		c.HelperID = &helper
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func cloneChat(ch *entity.Chat) *entity.Chat {
	c := *ch
	if ch.CompletedAt != nil {
		at := *ch.CompletedAt
		c.CompletedAt = &at
	}
	if ch.LastMessage != nil {
		last := *ch.LastMessage
		c.LastMessage = &last
	}
	c.UnreadCount = make(map[string]int, len(ch.UnreadCount))
	for k, v := range ch.UnreadCount {
		c.UnreadCount[k] = v
	}
	c.LastReadTimestamp = make(map[string]time.Time, len(ch.LastReadTimestamp))
	for k, v := range ch.LastReadTimestamp {
		c.LastReadTimestamp[k] = v
	}
	return &c
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	c.ReadBy = append([]string(nil), m.ReadBy...)
	return &c
}
