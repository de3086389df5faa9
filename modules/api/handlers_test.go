package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	canvasdomain "github.com/example/whiteboard-relay/domain/canvas"
	"github.com/example/whiteboard-relay/modules/auth"
	"github.com/example/whiteboard-relay/modules/rooms"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	signUpFunc func(ctx context.Context, req auth.SignUpRequest) (*auth.SignUpResponse, error)
	signInFunc func(ctx context.Context, req auth.SignInRequest) (*auth.SignInResponse, error)
	tokens     map[string]string
}

func (m *mockAuthPort) SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.SignUpResponse, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) SignIn(ctx context.Context, req auth.SignInRequest) (*auth.SignInResponse, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) IssueToken(_ context.Context, accountID string) (*auth.IssueTokenResponse, error) {
	return &auth.IssueTokenResponse{Token: "fresh-" + accountID, ExpiresIn: 3600}, nil
}

func (m *mockAuthPort) VerifyToken(_ context.Context, token string) (string, error) {
	if id, ok := m.tokens[token]; ok {
		return id, nil
	}
	return "", fmt.Errorf("verify-token request failed: %w", auth.ErrInvalidToken)
}

// mockRoomsPort implements rooms.RoomsPort for testing
type mockRoomsPort struct {
	rooms    map[string]rooms.RoomResponse
	drawings map[int64][]canvasdomain.Element
	chats    map[int64][]canvasdomain.ChatMessage
	limit    int
}

func newMockRoomsPort() *mockRoomsPort {
	return &mockRoomsPort{
		rooms:    make(map[string]rooms.RoomResponse),
		drawings: make(map[int64][]canvasdomain.Element),
		chats:    make(map[int64][]canvasdomain.ChatMessage),
	}
}

func (m *mockRoomsPort) CreateRoom(_ context.Context, name, adminID string) (*rooms.RoomResponse, error) {
	slug := rooms.Slugify(name)
	if _, ok := m.rooms[slug]; ok {
		return nil, fmt.Errorf("create-room request failed: %w", rooms.ErrSlugTaken)
	}
	r := rooms.RoomResponse{ID: int64(len(m.rooms) + 1), Slug: slug, AdminID: adminID, CreatedAt: time.Now()}
	m.rooms[slug] = r
	return &r, nil
}

func (m *mockRoomsPort) ListRooms(_ context.Context, adminID string) ([]rooms.RoomResponse, error) {
	var out []rooms.RoomResponse
	for _, r := range m.rooms {
		if r.AdminID == adminID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRoomsPort) GetRoom(_ context.Context, slug string) (*rooms.RoomResponse, error) {
	r, ok := m.rooms[slug]
	if !ok {
		return nil, fmt.Errorf("get-room request failed: %w", rooms.ErrRoomNotFound)
	}
	return &r, nil
}

func (m *mockRoomsPort) RoomDrawings(_ context.Context, roomID int64) (*rooms.DrawingsResponse, error) {
	elements, ok := m.drawings[roomID]
	if !ok {
		return nil, fmt.Errorf("room-drawings request failed: %w", rooms.ErrRoomNotFound)
	}
	return &rooms.DrawingsResponse{RoomID: roomID, Elements: elements}, nil
}

func (m *mockRoomsPort) RoomChats(_ context.Context, roomID int64, limit int) (*rooms.ChatsResponse, error) {
	m.limit = limit
	return &rooms.ChatsResponse{RoomID: roomID, Messages: m.chats[roomID]}, nil
}

type fixedPresence map[int64]int

func (p fixedPresence) RoomMembers(roomID int64) int {
	return p[roomID]
}

func newTestModule(authPort *mockAuthPort, roomsPort *mockRoomsPort) (*APIModule, *fiber.App) {
	m := NewModule(Config{}, &mockLogger{})
	m.authAdapter = authPort
	m.roomsAdapter = roomsPort
	return m, m.newApp()
}

func doRequest(t *testing.T, app *fiber.App, method, target, body, token string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestSignUp(t *testing.T) {
	authPort := &mockAuthPort{
		signUpFunc: func(_ context.Context, req auth.SignUpRequest) (*auth.SignUpResponse, error) {
			switch req.Username {
			case "taken":
				return nil, fmt.Errorf("sign-up request failed: %w", auth.ErrUserExists)
			case "ab":
				return nil, fmt.Errorf("sign-up request failed: %w", auth.ErrInvalidUsername)
			case "broken":
				return nil, errors.New("sign-up request failed: database is locked")
			}
			return &auth.SignUpResponse{ID: "acct-1", Username: req.Username, Name: req.Name}, nil
		},
	}
	_, app := newTestModule(authPort, newMockRoomsPort())

	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{name: "created", body: `{"username":"alice","password":"password123","name":"Alice"}`, expectedCode: http.StatusCreated, expectedBody: `"acct-1"`},
		{name: "missing password", body: `{"username":"alice"}`, expectedCode: http.StatusBadRequest, expectedBody: "required"},
		{name: "invalid body", body: `{"username":`, expectedCode: http.StatusBadRequest, expectedBody: "Invalid request body"},
		{name: "duplicate", body: `{"username":"taken","password":"password123"}`, expectedCode: http.StatusConflict, expectedBody: "already exists"},
		{name: "bad username", body: `{"username":"ab","password":"password123"}`, expectedCode: http.StatusBadRequest, expectedBody: "username must be between 3 and 64 characters"},
		{name: "internal", body: `{"username":"broken","password":"password123"}`, expectedCode: http.StatusInternalServerError, expectedBody: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, fiber.MethodPost, "/api/v1/signup", tt.body, "")
			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			assert.Contains(t, body, tt.expectedBody)
		})
	}
}

func TestSignInSetsCookie(t *testing.T) {
	authPort := &mockAuthPort{
		signInFunc: func(_ context.Context, req auth.SignInRequest) (*auth.SignInResponse, error) {
			if req.Password != "password123" {
				return nil, fmt.Errorf("sign-in request failed: %w", auth.ErrInvalidCredentials)
			}
			return &auth.SignInResponse{AccountID: "acct-1", Token: "tok-1", ExpiresIn: 3600}, nil
		},
	}
	_, app := newTestModule(authPort, newMockRoomsPort())

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/v1/signin", `{"username":"alice","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var token TokenResponse
	require.NoError(t, json.Unmarshal([]byte(body), &token))
	assert.Equal(t, "tok-1", token.Token)
	assert.Equal(t, "Bearer", token.TokenType)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "tok-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	resp, body = doRequest(t, app, fiber.MethodPost, "/api/v1/signin", `{"username":"alice","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")
}

func TestLogoutClearsCookie(t *testing.T) {
	_, app := newTestModule(&mockAuthPort{}, newMockRoomsPort())

	resp, _ := doRequest(t, app, fiber.MethodPost, "/api/v1/logout", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			found = true
			assert.Empty(t, c.Value)
		}
	}
	assert.True(t, found)
}

func TestAuthMiddleware(t *testing.T) {
	authPort := &mockAuthPort{tokens: map[string]string{"good": "acct-1"}}

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "no credentials", expectedStatus: http.StatusUnauthorized, expectedBody: "Token is required"},
		{name: "wrong scheme", authHeader: "Basic abc", expectedStatus: http.StatusUnauthorized, expectedBody: "Invalid authorization header format"},
		{name: "invalid token", authHeader: "Bearer bad", expectedStatus: http.StatusUnauthorized, expectedBody: "Invalid or expired token"},
		{name: "valid bearer", authHeader: "Bearer good", expectedStatus: http.StatusOK, expectedBody: "acct-1"},
		{name: "valid cookie", cookie: "good", expectedStatus: http.StatusOK, expectedBody: "acct-1"},
		{name: "header wins over cookie", authHeader: "Bearer bad", cookie: "good", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(AuthMiddleware(authPort))
			app.Get("/test", func(c *fiber.Ctx) error {
				return c.SendString(accountFrom(c))
			})

			req := httptest.NewRequest(fiber.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.expectedBody)
		})
	}
}

func TestTokenEndpoint(t *testing.T) {
	_, app := newTestModule(&mockAuthPort{tokens: map[string]string{"good": "acct-1"}}, newMockRoomsPort())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/v1/token", "", "good")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"fresh-acct-1"`)

	resp, _ = doRequest(t, app, fiber.MethodGet, "/api/v1/token", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoomLifecycle(t *testing.T) {
	authPort := &mockAuthPort{tokens: map[string]string{"alice": "acct-alice", "bob": "acct-bob"}}
	roomsPort := newMockRoomsPort()
	m, app := newTestModule(authPort, roomsPort)
	m.SetPresence(fixedPresence{1: 3})

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/v1/create-room", `{"name":"Design Review"}`, "alice")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var created RoomResponse
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, "design-review", created.Slug)
	assert.Equal(t, "acct-alice", created.AdminID)
	assert.Equal(t, 3, created.Members)

	resp, body = doRequest(t, app, fiber.MethodPost, "/api/v1/create-room", `{"name":"Design Review"}`, "alice")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "A room with this name already exists")

	resp, _ = doRequest(t, app, fiber.MethodPost, "/api/v1/create-room", `{"name":"   "}`, "alice")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, fiber.MethodPost, "/api/v1/create-room", `{"name":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doRequest(t, app, fiber.MethodGet, "/api/v1/rooms", "", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine RoomListResponse
	require.NoError(t, json.Unmarshal([]byte(body), &mine))
	assert.Len(t, mine.Rooms, 1)

	resp, body = doRequest(t, app, fiber.MethodGet, "/api/v1/rooms", "", "bob")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var theirs RoomListResponse
	require.NoError(t, json.Unmarshal([]byte(body), &theirs))
	assert.Empty(t, theirs.Rooms)

	resp, body = doRequest(t, app, fiber.MethodGet, "/api/v1/room/design-review", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"id":1`)

	resp, _ = doRequest(t, app, fiber.MethodGet, "/api/v1/room/missing", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomContent(t *testing.T) {
	roomsPort := newMockRoomsPort()
	roomsPort.drawings[7] = []canvasdomain.Element{{ID: "e1", Kind: canvasdomain.KindRectangle, RoomID: 7}}
	roomsPort.chats[7] = []canvasdomain.ChatMessage{{ID: 1, RoomID: 7, Message: "hi"}}
	_, app := newTestModule(&mockAuthPort{}, roomsPort)

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/v1/rooms/7/drawings", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var drawings rooms.DrawingsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &drawings))
	require.Len(t, drawings.Elements, 1)
	assert.Equal(t, "e1", drawings.Elements[0].ID)

	resp, _ = doRequest(t, app, fiber.MethodGet, "/api/v1/rooms/8/drawings", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, fiber.MethodGet, "/api/v1/rooms/abc/drawings", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, app, fiber.MethodGet, "/api/v1/rooms/7/chats?limit=10", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"hi"`)
	assert.Equal(t, 10, roomsPort.limit)

	doRequest(t, app, fiber.MethodGet, "/api/v1/rooms/7/chats?limit=5000", "", "")
	assert.Equal(t, rooms.DefaultChatHistory, roomsPort.limit)
}

func TestHealth(t *testing.T) {
	m, app := newTestModule(&mockAuthPort{}, newMockRoomsPort())

	resp, body := doRequest(t, app, fiber.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "healthy")

	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"auth", "rooms"}, m.Dependencies())
	assert.Equal(t, "3000", m.config.Port)
}
