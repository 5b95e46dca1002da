// Package pubsub fans user events out across API instances through Redis so
// a user connected to any instance receives them.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"helphand/internal/usecase"
)

const defaultChannel = "helphand:user-events"

type envelope struct {
	UserID  string          `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus publishes events to every instance; each one delivers them to the
// connections it holds through local.
type RedisBus struct {
	client  *redis.Client
	channel string
	local   usecase.Notifier

	readyOnce sync.Once
	ready     chan struct{}
}

func NewRedisBus(redisURL string, local usecase.Notifier) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBusWithClient(client, local), nil
}

func NewRedisBusWithClient(client *redis.Client, local usecase.Notifier) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: defaultChannel,
		local:   local,
		ready:   make(chan struct{}),
	}
}

// NotifyUser publishes the event. If Redis is unreachable the event is still
// delivered to this instance's connections.
func (b *RedisBus) NotifyUser(ctx context.Context, userID, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	data, err := json.Marshal(envelope{UserID: userID, Type: eventType, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		log.Printf("Redis publish failed, delivering %s to %s locally: %v", eventType, userID, err)
		return b.local.NotifyUser(ctx, userID, eventType, raw)
	}
	return nil
}

// Ready is closed once Run has subscribed.
func (b *RedisBus) Ready() <-chan struct{} {
	return b.ready
}

// Run relays published events to local connections until ctx is done.
func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Dropping malformed event on %s: %v", b.channel, err)
				continue
			}
			if err := b.local.NotifyUser(ctx, env.UserID, env.Type, env.Payload); err != nil {
				log.Printf("Failed to deliver %s to %s: %v", env.Type, env.UserID, err)
			}
		}
	}
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
