package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helphand/internal/adapter/api"
	"helphand/internal/adapter/api/handler"
	"helphand/internal/adapter/api/middleware"
	"helphand/internal/adapter/repository/memory"
	"helphand/internal/infrastructure/ratelimit"
	"helphand/internal/infrastructure/websocket"
	"helphand/internal/usecase"
	"helphand/pkg/retry"
)

// tokenAuth accepts "tok-<uid>" tokens.
type tokenAuth struct{}

func (tokenAuth) VerifyToken(ctx context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, "tok-") {
		return "", fmt.Errorf("invalid token")
	}
	return strings.TrimPrefix(token, "tok-"), nil
}

func (tokenAuth) GenerateToken(ctx context.Context, uid string) (string, error) {
	return "tok-" + uid, nil
}

type stubImageHost struct {
	uploads int
}

func (h *stubImageHost) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	h.uploads++
	return "https://i.example.com/" + filename, nil
}

type apiFixture struct {
	e         *echo.Echo
	store     *memory.Store
	imageHost *stubImageHost
}

func newAPIFixture(t *testing.T, environment string, rules map[string]ratelimit.Rule) *apiFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	requests := memory.NewRequestRepository(store)
	chats := memory.NewChatRepository(store)
	messages := memory.NewMessageRepository(store)
	policy := retry.Policy{Attempts: 1, Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 2}
	limiter := ratelimit.NewRateLimiter(rules)
	imageHost := &stubImageHost{}

	wsManager := websocket.NewManager()
	unreadUC := usecase.NewUnreadUseCase(store, chats, wsManager, policy)
	userUC := usecase.NewUserUseCase(users)
	requestUC := usecase.NewRequestUseCase(requests, users, policy)
	chatUC := usecase.NewChatUseCase(store, chats, messages, users, unreadUC, wsManager, limiter, policy)
	messageUC := usecase.NewMessageUseCase(store, chats, messages, imageHost, unreadUC, limiter, policy)
	wsManager.Attach(messageUC, usecase.NewSubscriptionUseCase(chats, messages, messageUC))
	wsManager.Start(ctx)

	e := echo.New()
	e.Validator = api.NewValidator()
	handlers := handler.Setup(userUC, requestUC, chatUC, messageUC, unreadUC, wsManager, tokenAuth{}, "memory")
	Setup(e, handlers, middleware.NewAuthMiddleware(tokenAuth{}), limiter, environment)

	return &apiFixture{e: e, store: store, imageHost: imageHost}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path, uid string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if uid != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer tok-"+uid)
	}
	return f.serve(t, req)
}

func (f *apiFixture) serve(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (f *apiFixture) onboard(t *testing.T, uid string) {
	t.Helper()
	code, _ := f.do(t, http.MethodPost, "/v1/users/me", uid, map[string]string{"email": uid + "@example.com"})
	require.Equal(t, http.StatusCreated, code)

	code, env := f.do(t, http.MethodPut, "/v1/users/me/profile", uid, map[string]interface{}{
		"display_name": "User " + uid,
		"age":          30,
		"gender":       "Other",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
}

func decode(t *testing.T, raw json.RawMessage, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, into))
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newAPIFixture(t, "production", nil)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"memory"`)
}

func TestV1RequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t, "production", nil)

	code, env := f.do(t, http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer forged")
	code, env = f.serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestProfileValidation(t *testing.T) {
	f := newAPIFixture(t, "production", nil)
	code, _ := f.do(t, http.MethodPost, "/v1/users/me", "U1", nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := f.do(t, http.MethodPut, "/v1/users/me/profile", "U1", map[string]interface{}{
		"display_name": "Young",
		"age":          15,
		"gender":       "Other",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Message, "16")
}

func TestHelpSessionOverHTTP(t *testing.T) {
	f := newAPIFixture(t, "production", nil)
	f.onboard(t, "U1")
	f.onboard(t, "U2")

	code, env := f.do(t, http.MethodPost, "/v1/requests", "U1", map[string]interface{}{
		"category":       "Editing",
		"description":    "Proofread my cover letter",
		"estimated_time": 15,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &created)

	code, env = f.do(t, http.MethodGet, "/v1/requests?category=Editing", "U2", nil)
	require.Equal(t, http.StatusOK, code)
	var browse struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decode(t, env.Data, &browse)
	require.Equal(t, 1, browse.Total)
	assert.Equal(t, created.ID, browse.Items[0].ID)

	code, env = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/claim", "U2", nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var opened struct {
		Chat struct {
			ID string `json:"id"`
		} `json:"chat"`
		Created bool `json:"created"`
	}
	decode(t, env.Data, &opened)
	assert.True(t, opened.Created)
	assert.Equal(t, created.ID+"_U2", opened.Chat.ID)

	code, env = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/claim", "U2", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, 1, f.store.ChatCount(created.ID))

	chatPath := "/v1/chats/" + opened.Chat.ID
	code, env = f.do(t, http.MethodPost, chatPath+"/messages", "U1", map[string]string{"text": "thanks for helping"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = f.do(t, http.MethodGet, "/v1/users/me/unread", "U2", nil)
	require.Equal(t, http.StatusOK, code)
	var unread struct {
		Total int `json:"total"`
	}
	decode(t, env.Data, &unread)
	assert.Equal(t, 1, unread.Total)

	code, env = f.do(t, http.MethodPut, chatPath+"/read", "U2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"marked":1}`, string(env.Data))

	code, env = f.do(t, http.MethodPost, chatPath+"/complete", "U2", map[string]bool{"award_trophy": true})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	code, env = f.do(t, http.MethodPost, chatPath+"/complete", "U1", map[string]bool{"award_trophy": true})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = f.do(t, http.MethodGet, "/v1/users/U2/stats", "U1", nil)
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		Trophies       int `json:"trophies"`
		RequestsHelped int `json:"requests_helped"`
	}
	decode(t, env.Data, &stats)
	assert.Equal(t, 1, stats.Trophies)
	assert.Equal(t, 1, stats.RequestsHelped)

	code, env = f.do(t, http.MethodPost, chatPath+"/messages", "U2", map[string]string{"text": "one more thing"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CHAT_ENDED", env.Error.Code)

	code, env = f.do(t, http.MethodGet, chatPath+"/messages", "U2", nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, env.Data, &list)
	assert.Equal(t, 3, list.Total)
}

func TestChatRoutesRejectOutsiders(t *testing.T) {
	f := newAPIFixture(t, "production", nil)
	f.onboard(t, "U1")
	f.onboard(t, "U2")

	_, env := f.do(t, http.MethodPost, "/v1/requests", "U1", map[string]interface{}{
		"category":       "Artwork",
		"description":    "Sketch a logo",
		"estimated_time": 60,
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &created)
	_, env = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/claim", "U2", nil)
	require.True(t, env.Success)

	chatPath := "/v1/chats/" + created.ID + "_U2"
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, chatPath},
		{http.MethodGet, chatPath + "/messages"},
		{http.MethodPut, chatPath + "/read"},
		{http.MethodPost, chatPath + "/leave"},
		{http.MethodPost, chatPath + "/recount"},
	} {
		code, env := f.do(t, route.method, route.path, "U9", nil)
		assert.Equal(t, http.StatusForbidden, code, route.path)
		assert.Equal(t, "FORBIDDEN", env.Error.Code, route.path)
	}
}

func imageRequest(t *testing.T, path, uid string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok-"+uid)
	return req
}

func TestImageUpload(t *testing.T) {
	f := newAPIFixture(t, "production", nil)
	f.onboard(t, "U1")
	f.onboard(t, "U2")

	_, env := f.do(t, http.MethodPost, "/v1/requests", "U1", map[string]interface{}{
		"category":       "Consulting",
		"description":    "Which plant is this?",
		"estimated_time": 10,
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &created)
	_, env = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/claim", "U2", nil)
	require.True(t, env.Success)
	imagesPath := "/v1/chats/" + created.ID + "_U2/images"

	code, env := f.serve(t, imageRequest(t, imagesPath, "U1", make([]byte, usecase.MaxImageBytes+1)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", env.Error.Code)
	assert.Equal(t, 0, f.imageHost.uploads)

	code, env = f.serve(t, imageRequest(t, imagesPath, "U1", []byte("jpeg bytes")))
	require.Equal(t, http.StatusCreated, code, env.Error)
	var msg struct {
		Type     string `json:"type"`
		ImageURL string `json:"image_url"`
	}
	decode(t, env.Data, &msg)
	assert.Equal(t, "https://i.example.com/photo.jpg", msg.ImageURL)
	assert.Equal(t, 1, f.imageHost.uploads)
}

func TestDevTokenRouteOnlyInDevelopment(t *testing.T) {
	prod := newAPIFixture(t, "production", nil)
	rec := httptest.NewRecorder()
	prod.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_dev/token/U1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	dev := newAPIFixture(t, "development", nil)
	code, env := dev.serve(t, httptest.NewRequest(http.MethodGet, "/_dev/token/U1", nil))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"uid":"U1","token":"tok-U1"}`, string(env.Data))
}

func TestV1IsRateLimitedPerUser(t *testing.T) {
	f := newAPIFixture(t, "production", map[string]ratelimit.Rule{
		ActionAPIRequest: {Burst: 2, Every: time.Hour},
	})

	for i := 0; i < 2; i++ {
		code, _ := f.do(t, http.MethodGet, "/v1/chats", "U1", nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, env := f.do(t, http.MethodGet, "/v1/chats", "U1", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)

	code, _ = f.do(t, http.MethodGet, "/v1/chats", "U2", nil)
	assert.Equal(t, http.StatusOK, code)
}
