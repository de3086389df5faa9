package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/whiteboard-relay/events"
	"github.com/example/whiteboard-relay/modules/canvas"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const localAccountID = "accountID"

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ModuleConfig configures the relay listener.
type ModuleConfig struct {
	Addr           string
	AllowedOrigins string
	SendBuffer     int
	Relay          Config
}

// RelayModule runs the websocket listener and the hub.
type RelayModule struct {
	config   ModuleConfig
	verifier TokenVerifier
	gateway  canvas.Gateway
	logger   types.Logger

	app       *fiber.App
	hub       *Hub
	relay     *Relay
	eventBus  mono.EventBus
	ctx       context.Context
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*RelayModule)(nil)
	_ mono.HealthCheckableModule = (*RelayModule)(nil)
	_ mono.EventBusAwareModule   = (*RelayModule)(nil)
	_ mono.EventEmitterModule    = (*RelayModule)(nil)
	_ ActivityNotifier           = (*RelayModule)(nil)
)

// NewModule creates a new RelayModule.
func NewModule(config ModuleConfig, verifier TokenVerifier, gateway canvas.Gateway, logger types.Logger) *RelayModule {
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	logger = logger.WithModule("relay")
	hub := NewHub(logger)
	m := &RelayModule{
		config:   config,
		verifier: verifier,
		gateway:  gateway,
		logger:   logger,
		hub:      hub,
	}
	m.relay = NewRelay(hub, gateway, m, config.Relay, logger)
	return m
}

// Name returns the module name.
func (m *RelayModule) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *RelayModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *RelayModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomActivityV1.ToBase(),
	}
}

// RoomActivity publishes a room activity event on the EventBus.
func (m *RelayModule) RoomActivity(_ context.Context, event events.RoomActivityEvent) error {
	if m.eventBus == nil {
		return nil
	}
	return events.RoomActivityV1.Publish(m.eventBus, event, nil)
}

// Start runs the hub and the websocket listener.
func (m *RelayModule) Start(_ context.Context) error {
	if m.verifier == nil {
		return fmt.Errorf("relay: token verifier not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.ctx = ctx
	m.cancelHub = cancel
	go m.hub.Run(ctx)

	m.app = m.newApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		return fmt.Errorf("relay listener failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("Relay listener started", "addr", m.config.Addr)
	return nil
}

// Stop closes every connection and shuts the listener down.
func (m *RelayModule) Stop(ctx context.Context) error {
	if m.cancelHub == nil {
		return nil
	}
	clients, _ := m.hub.Stats()
	m.cancelHub()
	m.hub.Wait()
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown relay listener: %w", err)
		}
	}
	m.logger.Info("Relay stopped", "clients", clients)
	return nil
}

// Health returns the health status.
func (m *RelayModule) Health(_ context.Context) mono.HealthStatus {
	if m.cancelHub == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	clients, rooms := m.hub.Stats()
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":              m.config.Addr,
			"connected_clients": clients,
			"active_rooms":      rooms,
		},
	}
}

// RoomMembers returns how many live connections have joined a room.
func (m *RelayModule) RoomMembers(roomID int64) int {
	if m.cancelHub == nil {
		return 0
	}
	return m.hub.RoomClientCount(RoomID(strconv.FormatInt(roomID, 10)))
}

func (m *RelayModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Whiteboard Relay",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	if m.config.AllowedOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: m.config.AllowedOrigins,
			AllowMethods: "GET,OPTIONS",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		clients, rooms := m.hub.Stats()
		return c.JSON(fiber.Map{
			"status":            "healthy",
			"connected_clients": clients,
			"active_rooms":      rooms,
		})
	})

	handler := websocket.New(m.handleConnection)
	app.Get("/", m.authenticate, handler)
	app.Get("/ws", m.authenticate, handler)
	return app
}

// authenticate refuses the upgrade unless the request carries a valid token.
func (m *RelayModule) authenticate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}

	accountID, err := m.verifier.Verify(token)
	if err != nil {
		m.logger.Warn("Rejected connection", "ip", c.IP(), "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	c.Locals(localAccountID, accountID)
	return c.Next()
}

func (m *RelayModule) handleConnection(conn *websocket.Conn) {
	accountID, _ := conn.Locals(localAccountID).(string)
	if accountID == "" {
		_ = conn.Close()
		return
	}
	serve(m.ctx, conn, accountID, m.relay, m.config.SendBuffer, m.logger)
}

func (m *RelayModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "message", message, "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
