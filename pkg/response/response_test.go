package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "helphand/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorRendersAppError(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, fmt.Errorf("send: %w", apperrors.ChatEnded())))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "CHAT_ENDED", body.Error.Code)
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, fmt.Errorf("connection reset")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
}

func TestSuccessWrapsData(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Success(c, map[string]string{"chat_id": "r1_u2"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Timestamp)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "estimated_time", toSnake("EstimatedTime"))
	assert.Equal(t, "age", toSnake("Age"))
}
