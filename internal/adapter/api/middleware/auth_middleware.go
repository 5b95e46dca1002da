package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"helphand/internal/usecase"
	"helphand/pkg/errors"
	"helphand/pkg/response"
)

type AuthMiddleware struct {
	authClient usecase.AuthClient
}

func NewAuthMiddleware(authClient usecase.AuthClient) *AuthMiddleware {
	return &AuthMiddleware{
		authClient: authClient,
	}
}

// Authenticate requires an "Authorization: Bearer <id token>" header and
// stores the caller's uid under "uid".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		return m.verify(c, next, parts[1])
	}
}

// AuthenticateWebSocket also accepts the token as a "token" query parameter,
// since browsers cannot set headers on the upgrade request.
func (m *AuthMiddleware) AuthenticateWebSocket(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "" {
			return m.Authenticate(next)(c)
		}

		token := c.QueryParam("token")
		if token == "" {
			return response.Error(c, errors.Unauthorized("Token is required", nil))
		}
		return m.verify(c, next, token)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, next echo.HandlerFunc, token string) error {
	uid, err := m.authClient.VerifyToken(c.Request().Context(), token)
	if err != nil || uid == "" {
		return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
	}

	c.Set("uid", uid)
	return next(c)
}
