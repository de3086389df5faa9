package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/whiteboard-relay/modules/auth"
	"github.com/example/whiteboard-relay/modules/rooms"
	"github.com/gofiber/fiber/v2"
)

const (
	maxRoomNameLength = 100
	maxHistoryLimit   = 1000
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	api := app.Group("/api/v1")
	requireAuth := AuthMiddleware(m.authAdapter)

	// Accounts
	api.Post("/signup", m.signUp)
	api.Post("/signin", m.signIn)
	api.Post("/logout", m.logout)
	api.Get("/token", requireAuth, m.token)

	// Rooms
	api.Post("/create-room", requireAuth, m.createRoom)
	api.Get("/rooms", requireAuth, m.listRooms)
	api.Get("/room/:slug", m.getRoom)
	api.Get("/rooms/:id/drawings", m.getDrawings)
	api.Get("/rooms/:id/chats", m.getChats)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "api",
		},
	})
}

// signUp handles POST /api/v1/signup.
func (m *APIModule) signUp(c *fiber.Ctx) error {
	var req auth.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	resp, err := m.authAdapter.SignUp(c.UserContext(), req)
	if err != nil {
		return m.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// signIn handles POST /api/v1/signin. The token is returned in the body and
// set as a cookie for browser clients.
func (m *APIModule) signIn(c *fiber.Ctx) error {
	var req auth.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	resp, err := m.authAdapter.SignIn(c.UserContext(), req)
	if err != nil {
		return m.handleError(c, err)
	}

	m.setTokenCookie(c, resp.Token, resp.ExpiresIn)
	return c.JSON(TokenResponse{
		Token:     resp.Token,
		ExpiresIn: resp.ExpiresIn,
		TokenType: "Bearer",
	})
}

// logout handles POST /api/v1/logout.
func (m *APIModule) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(MessageResponse{Message: "Signed out"})
}

// token handles GET /api/v1/token. It hands the caller a fresh token for
// the websocket relay.
func (m *APIModule) token(c *fiber.Ctx) error {
	resp, err := m.authAdapter.IssueToken(c.UserContext(), accountFrom(c))
	if err != nil {
		return m.handleError(c, err)
	}
	return c.JSON(TokenResponse{
		Token:     resp.Token,
		ExpiresIn: resp.ExpiresIn,
		TokenType: "Bearer",
	})
}

// createRoom handles POST /api/v1/create-room.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "Room name is required")
	}
	if len(req.Name) > maxRoomNameLength {
		return badRequest(c, "Room name too long (max 100 characters)")
	}

	room, err := m.roomsAdapter.CreateRoom(c.UserContext(), req.Name, accountFrom(c))
	if err != nil {
		return m.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m.withMembers(*room))
}

// listRooms handles GET /api/v1/rooms. Only the caller's rooms are listed.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	list, err := m.roomsAdapter.ListRooms(c.UserContext(), accountFrom(c))
	if err != nil {
		return m.handleError(c, err)
	}

	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(list)),
	}
	for _, room := range list {
		response.Rooms = append(response.Rooms, m.withMembers(room))
	}
	return c.JSON(response)
}

// getRoom handles GET /api/v1/room/:slug.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	room, err := m.roomsAdapter.GetRoom(c.UserContext(), c.Params("slug"))
	if err != nil {
		return m.handleError(c, err)
	}
	return c.JSON(m.withMembers(*room))
}

// getDrawings handles GET /api/v1/rooms/:id/drawings.
func (m *APIModule) getDrawings(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Room id must be an integer")
	}

	resp, err := m.roomsAdapter.RoomDrawings(c.UserContext(), roomID)
	if err != nil {
		return m.handleError(c, err)
	}
	return c.JSON(resp)
}

// getChats handles GET /api/v1/rooms/:id/chats.
func (m *APIModule) getChats(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Room id must be an integer")
	}

	limit := rooms.DefaultChatHistory
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}

	resp, err := m.roomsAdapter.RoomChats(c.UserContext(), roomID, limit)
	if err != nil {
		return m.handleError(c, err)
	}
	return c.JSON(resp)
}

func (m *APIModule) withMembers(room rooms.RoomResponse) RoomResponse {
	resp := RoomResponse{RoomResponse: room}
	if m.presence != nil {
		resp.Members = m.presence.RoomMembers(room.ID)
	}
	return resp
}

func (m *APIModule) setTokenCookie(c *fiber.Ctx, token string, expiresIn int64) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		HTTPOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// handleError maps service errors onto HTTP responses. Errors cross the
// service container as text, so known messages are matched by content.
func (m *APIModule) handleError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid username or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid username or password",
		})
	case strings.Contains(errStr, "already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: conflictMessage(errStr),
		})
	case strings.Contains(errStr, "username must be between"),
		strings.Contains(errStr, "password must be at least"),
		strings.Contains(errStr, "password must be at most"),
		strings.Contains(errStr, "must produce a slug"):
		return badRequest(c, lastSegment(errStr))
	case strings.Contains(errStr, "not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	default:
		// Log the actual error but don't expose it to the client
		m.logger.Error("Internal error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// lastSegment strips the wrapping added on the way through the service container.
func lastSegment(errStr string) string {
	if i := strings.LastIndex(errStr, ": "); i >= 0 {
		return errStr[i+2:]
	}
	return errStr
}

func conflictMessage(errStr string) string {
	if strings.Contains(errStr, "slug") {
		return "A room with this name already exists"
	}
	return "User with this username already exists"
}
