package api

import (
	"context"
	"fmt"
	"time"

	"github.com/example/whiteboard-relay/modules/auth"
	"github.com/example/whiteboard-relay/modules/rooms"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// PresenceCounter reports how many live connections have joined a room.
type PresenceCounter interface {
	RoomMembers(roomID int64) int
}

// Config configures the HTTP API.
type Config struct {
	Port           string
	AllowedOrigins string
	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
}

// APIModule is the HTTP API module.
type APIModule struct {
	config       Config
	app          *fiber.App
	authAdapter  auth.AuthPort
	roomsAdapter rooms.RoomsPort
	presence     PresenceCounter
	logger       types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config, logger types.Logger) *APIModule {
	if config.Port == "" {
		config.Port = "3000"
	}
	return &APIModule{
		config: config,
		logger: logger.WithModule("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "rooms"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	case "rooms":
		m.roomsAdapter = rooms.NewRoomsAdapter(container)
	}
}

// SetPresence sets the live membership source (called from main.go).
func (m *APIModule) SetPresence(p PresenceCounter) {
	m.presence = p
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth adapter dependency not set")
	}
	if m.roomsAdapter == nil {
		return fmt.Errorf("rooms adapter dependency not set")
	}

	m.app = m.newApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.config.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.config.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.config.Port,
		},
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Whiteboard API",
		DisableStartupMessage: true,
		ErrorHandler:          m.customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	if m.config.AllowedOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     m.config.AllowedOrigins,
			AllowCredentials: m.config.AllowedOrigins != "*",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		}))
	}
	app.Use(m.loggerMiddleware())

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func (m *APIModule) customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		m.logger.Error("Unhandled error", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func (m *APIModule) loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.logger.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
