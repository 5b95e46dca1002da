package handler

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/usecase"
	"helphand/pkg/errors"
	"helphand/pkg/response"
)

type DevTokenHandler struct {
	authClient usecase.AuthClient
}

func NewDevTokenHandler(authClient usecase.AuthClient) *DevTokenHandler {
	return &DevTokenHandler{
		authClient: authClient,
	}
}

// GenerateToken mints a token for any uid. Mounted in development only.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return response.Error(c, errors.Validation("uid is required"))
	}

	token, err := h.authClient.GenerateToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate token", err))
	}

	return response.Success(c, map[string]string{
		"uid":   uid,
		"token": token,
	})
}
