package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"helphand/internal/usecase"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Client is one WebSocket connection. A user may hold several.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	watches map[string]context.CancelFunc
}

func NewClient(parent context.Context, userID string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(parent)
	return &Client{
		ID:      uuid.New().String(),
		UserID:  userID,
		Conn:    conn,
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		watches: make(map[string]context.CancelFunc),
	}
}

// Enqueue queues a frame for the write pump. Frames for a closed or
// saturated client are dropped.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		log.Printf("WebSocket: send buffer full for client %s, dropping frame", c.ID)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for chatID, stop := range c.watches {
		stop()
		delete(c.watches, chatID)
	}
	close(c.send)
}

// startWatch registers a chat subscription; false when one already runs.
func (c *Client) startWatch(chatID string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	if _, ok := c.watches[chatID]; ok {
		return nil, false
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.watches[chatID] = cancel
	return ctx, true
}

func (c *Client) stopWatch(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stop, ok := c.watches[chatID]; ok {
		stop()
		delete(c.watches, chatID)
	}
}

// Manager tracks live connections per user and routes events to them.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	messages      *usecase.MessageUseCase
	subscriptions *usecase.SubscriptionUseCase
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Attach wires the use cases that serve client frames.
func (m *Manager) Attach(messages *usecase.MessageUseCase, subscriptions *usecase.SubscriptionUseCase) {
	m.messages = messages
	m.subscriptions = subscriptions
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				log.Printf("WebSocket: client %s registered for user %s", client.ID, client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if conns, ok := m.clients[client.UserID]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(m.clients, client.UserID)
					}
				}
				m.mutex.Unlock()
				client.close()
				log.Printf("WebSocket: client %s unregistered for user %s", client.ID, client.UserID)

			case <-ctx.Done():
				m.mutex.Lock()
				for _, conns := range m.clients {
					for client := range conns {
						client.close()
					}
				}
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				return
			}
		}
	}()
}

// NotifyUser delivers an event to every connection userID holds on this
// instance.
func (m *Manager) NotifyUser(ctx context.Context, userID, eventType string, payload interface{}) error {
	frame, err := encodeFrame(eventType, "", payload)
	if err != nil {
		return err
	}

	m.mutex.RLock()
	conns := make([]*Client, 0, len(m.clients[userID]))
	for client := range m.clients[userID] {
		conns = append(conns, client)
	}
	m.mutex.RUnlock()

	for _, client := range conns {
		client.Enqueue(frame)
	}
	return nil
}

// ConnectionCount reports how many connections userID holds.
func (m *Manager) ConnectionCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// TotalConnections reports how many connections this instance holds.
func (m *Manager) TotalConnections() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	total := 0
	for _, conns := range m.clients {
		total += len(conns)
	}
	return total
}

// ReadPump reads frames from the connection until it closes.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket: read error for client %s: %v", c.ID, err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket: write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeFrame(eventType, chatID string, data interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      eventType,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
