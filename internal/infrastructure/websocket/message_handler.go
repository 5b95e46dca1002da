package websocket

import (
	"encoding/json"
	stderrors "errors"
	"log"

	"helphand/internal/usecase"
	"helphand/pkg/errors"
)

// Client frame types.
const (
	MessageTypePing        = "ping"
	MessageTypeJoinChat    = "join_chat"
	MessageTypeLeaveChat   = "leave_chat"
	MessageTypeSendMessage = "send_message"
	MessageTypeMarkRead    = "mark_read"
)

// Server frame types besides the use case events.
const (
	MessageTypePong        = "pong"
	MessageTypeMessageSent = "message_sent"
	MessageTypeMarkedRead  = "marked_read"
	MessageTypeJoined      = "joined"
	MessageTypeError       = "error"
)

type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	ChatID    string      `json:"chat_id,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

type inboundMessage struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id"`
	Data   json.RawMessage `json:"data"`
}

type SendMessageData struct {
	ChatID   string `json:"chat_id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
	TempID   string `json:"temp_id,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleClientMessage dispatches one frame received from client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("WebSocket: invalid frame from client %s: %v", client.ID, err)
		m.sendError(client, "", errors.BadRequest("Invalid message format", err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.reply(client, MessageTypePong, "", map[string]string{"status": "alive"})

	case MessageTypeJoinChat:
		m.handleJoinChat(client, msg)

	case MessageTypeLeaveChat:
		client.stopWatch(msg.ChatID)

	case MessageTypeSendMessage:
		m.handleSendMessage(client, msg)

	case MessageTypeMarkRead:
		m.handleMarkRead(client, msg)

	default:
		log.Printf("WebSocket: unknown message type '%s' from client %s", msg.Type, client.ID)
		m.sendError(client, msg.ChatID, errors.BadRequest("Unknown message type", nil))
	}
}

func (m *Manager) handleJoinChat(client *Client, msg inboundMessage) {
	if msg.ChatID == "" {
		m.sendError(client, "", errors.Validation("chat_id is required"))
		return
	}

	ctx, ok := client.startWatch(msg.ChatID)
	if !ok {
		return
	}

	chatID := msg.ChatID
	err := m.subscriptions.Watch(ctx, chatID, client.UserID, func(eventType string, payload interface{}) {
		frame, err := encodeFrame(eventType, chatID, payload)
		if err != nil {
			log.Printf("WebSocket: failed to encode %s for chat %s: %v", eventType, chatID, err)
			return
		}
		client.Enqueue(frame)
	})
	if err != nil {
		client.stopWatch(chatID)
		m.sendError(client, chatID, err)
		return
	}

	m.reply(client, MessageTypeJoined, chatID, nil)
}

func (m *Manager) handleSendMessage(client *Client, msg inboundMessage) {
	var data SendMessageData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.sendError(client, msg.ChatID, errors.BadRequest("Invalid send message format", err))
			return
		}
	}
	if data.ChatID == "" {
		data.ChatID = msg.ChatID
	}
	if data.ChatID == "" {
		m.sendError(client, "", errors.Validation("chat_id is required"))
		return
	}

	sent, err := m.messages.Send(client.ctx, client.UserID, usecase.SendMessageInput{
		ChatID:   data.ChatID,
		Text:     data.Text,
		ImageURL: data.ImageURL,
	})
	if err != nil {
		m.sendError(client, data.ChatID, err)
		return
	}

	m.reply(client, MessageTypeMessageSent, data.ChatID, map[string]interface{}{
		"temp_id": data.TempID,
		"message": sent,
	})
}

func (m *Manager) handleMarkRead(client *Client, msg inboundMessage) {
	if msg.ChatID == "" {
		m.sendError(client, "", errors.Validation("chat_id is required"))
		return
	}

	marked, err := m.messages.MarkRead(client.ctx, msg.ChatID, client.UserID)
	if err != nil {
		m.sendError(client, msg.ChatID, err)
		return
	}

	m.reply(client, MessageTypeMarkedRead, msg.ChatID, map[string]int{"marked": marked})
}

func (m *Manager) reply(client *Client, frameType, chatID string, data interface{}) {
	frame, err := encodeFrame(frameType, chatID, data)
	if err != nil {
		log.Printf("WebSocket: failed to encode %s frame: %v", frameType, err)
		return
	}
	client.Enqueue(frame)
}

func (m *Manager) sendError(client *Client, chatID string, err error) {
	data := ErrorData{Code: "INTERNAL_ERROR", Message: "Something went wrong"}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		data = ErrorData{Code: appErr.Code, Message: appErr.Message}
	} else {
		log.Printf("WebSocket: unexpected error for client %s: %v", client.ID, err)
	}
	m.reply(client, MessageTypeError, chatID, data)
}
