package handler

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/usecase"
	"helphand/pkg/response"
)

type UserHandler struct {
	userUseCase   *usecase.UserUseCase
	unreadUseCase *usecase.UnreadUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase, unreadUseCase *usecase.UnreadUseCase) *UserHandler {
	return &UserHandler{
		userUseCase:   userUseCase,
		unreadUseCase: unreadUseCase,
	}
}

type registerRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type completeProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=50"`
	Age         int    `json:"age" validate:"required,min=16,max=120"`
	Gender      string `json:"gender" validate:"required,oneof=Male Female Other"`
}

// Register creates the caller's profile document after sign-up.
func (h *UserHandler) Register(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.Register(c.Request().Context(), uid, req.Email)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, user)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) CompleteProfile(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req completeProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.CompleteProfile(c.Request().Context(), uid, usecase.ProfileInput{
		DisplayName: req.DisplayName,
		Age:         req.Age,
		Gender:      req.Gender,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) GetStats(c echo.Context) error {
	stats, err := h.userUseCase.GetStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, stats)
}

// GetUnread returns the caller's unread total across active chats.
func (h *UserHandler) GetUnread(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	total, err := h.unreadUseCase.Total(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, total)
}
