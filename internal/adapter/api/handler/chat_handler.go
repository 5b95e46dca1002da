package handler

import (
	"io"

	"github.com/labstack/echo/v4"

	"helphand/internal/usecase"
	"helphand/pkg/errors"
	"helphand/pkg/response"
)

type ChatHandler struct {
	chatUseCase    *usecase.ChatUseCase
	messageUseCase *usecase.MessageUseCase
	unreadUseCase  *usecase.UnreadUseCase
}

func NewChatHandler(
	chatUseCase *usecase.ChatUseCase,
	messageUseCase *usecase.MessageUseCase,
	unreadUseCase *usecase.UnreadUseCase,
) *ChatHandler {
	return &ChatHandler{
		chatUseCase:    chatUseCase,
		messageUseCase: messageUseCase,
		unreadUseCase:  unreadUseCase,
	}
}

type sendMessageRequest struct {
	Text     string `json:"text" validate:"required_without=ImageURL,max=2000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type completeChatRequest struct {
	AwardTrophy bool `json:"award_trophy"`
}

func (h *ChatHandler) List(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chats, err := h.chatUseCase.List(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, chats, len(chats))
}

func (h *ChatHandler) Get(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.messageUseCase.List(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), uid, usecase.SendMessageInput{
		ChatID:   c.Param("id"),
		Text:     req.Text,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// SendImage accepts a multipart "image" file, uploads it and posts it to the
// chat.
func (h *ChatHandler) SendImage(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, errors.BadRequest("image file is required", err))
	}
	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read image", err))
	}
	defer src.Close()

	// One byte past the cap is enough for the size check to reject it.
	data, err := io.ReadAll(io.LimitReader(src, usecase.MaxImageBytes+1))
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read image", err))
	}

	msg, err := h.messageUseCase.SendImage(c.Request().Context(), uid, usecase.SendImageInput{
		ChatID:      c.Param("id"),
		Data:        data,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	marked, err := h.messageUseCase.MarkRead(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked": marked})
}

func (h *ChatHandler) Complete(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req completeChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.Complete(c.Request().Context(), c.Param("id"), uid, req.AwardTrophy)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) Leave(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.Leave(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// Recount rebuilds both unread counters of the chat from the read sets.
func (h *ChatHandler) Recount(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	counts, err := h.unreadUseCase.Recount(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"unread_count": counts})
}
