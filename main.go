package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/whiteboard-relay/config"
	"github.com/example/whiteboard-relay/modules/activity"
	"github.com/example/whiteboard-relay/modules/api"
	"github.com/example/whiteboard-relay/modules/auth"
	"github.com/example/whiteboard-relay/modules/canvas"
	"github.com/example/whiteboard-relay/modules/relay"
	"github.com/example/whiteboard-relay/modules/rooms"
	"github.com/example/whiteboard-relay/modules/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("=== Whiteboard Relay - Fiber WebSocket + Room Fan-out ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Shared store for accounts, rooms, drawings and chats
	db, err := store.Open(store.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := canvas.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate canvas tables: %v", err)
	}

	var gateway canvas.Gateway = canvas.NewRepository(db)
	redisClient := connectRedis(cfg)
	if redisClient != nil {
		gateway = canvas.NewCachedGateway(gateway, redisClient, cfg.CacheTTL, logger)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		SecretKey: cfg.JWTSecret,
		TTL:       cfg.JWTTTL,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}

	// Create modules
	authModule := auth.NewModule(db, tokens, auth.NewPasswordHasher(), logger)
	roomsModule := rooms.NewModule(db, gateway, logger)
	activityModule := activity.NewModule(roomsModule.Repository(), logger)
	relayModule := relay.NewModule(relay.ModuleConfig{
		Addr:           cfg.RelayAddr,
		AllowedOrigins: cfg.CORSOrigin,
		SendBuffer:     cfg.SendBuffer,
		Relay: relay.Config{
			StoreTimeout: cfg.StoreTimeout,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
		},
	}, tokens, gateway, logger)
	apiModule := api.NewModule(api.Config{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.CORSOrigin,
		SecureCookies:  cfg.CookieSecure,
	}, logger)

	// Room listings report live membership from the relay hub
	apiModule.SetPresence(relayModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: accounts and tokens (ServiceProviderModule)
	// - rooms: room directory and room-load reads (ServiceProviderModule)
	// - activity: room last-activity tracking (EventConsumerModule)
	// - relay: websocket listener and room fan-out (EventEmitterModule)
	// - api: HTTP API (depends on auth and rooms)
	app.Register(authModule)
	app.Register(roomsModule)
	app.Register(activityModule)
	app.Register(relayModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg, redisClient != nil)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				if err := app.Stop(ctx); err != nil {
					return err
				}
				if redisClient != nil {
					_ = redisClient.Close()
				}
				return store.Close(db)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// connectRedis returns nil when no cache is configured or Redis is unreachable.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s, drawing cache disabled: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return nil
	}
	return client
}

func printStartupInfo(cfg *config.Config, cached bool) {
	cache := "disabled"
	if cached {
		cache = "redis " + cfg.RedisAddr
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Printf("  - Database: %s", cfg.DBDriver)
	log.Printf("  - Drawing cache: %s", cache)
	log.Println("")
	log.Println("Room fan-out:")
	log.Println("  - Content is stored first, then sent to every member of the room")
	log.Println("  - RoomActivity events -> activity module -> room last_active_at")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.HTTPPort)
	log.Println("  GET    /health                     - Health check")
	log.Println("  POST   /api/v1/signup              - Create an account")
	log.Println("  POST   /api/v1/signin              - Sign in (sets token cookie)")
	log.Println("  POST   /api/v1/logout              - Clear the token cookie")
	log.Println("  GET    /api/v1/token               - Token for the relay (auth)")
	log.Println("  POST   /api/v1/create-room         - Create a room (auth)")
	log.Println("  GET    /api/v1/rooms               - List my rooms (auth)")
	log.Println("  GET    /api/v1/room/:slug          - Resolve a room by slug")
	log.Println("  GET    /api/v1/rooms/:id/drawings  - Current canvas")
	log.Println("  GET    /api/v1/rooms/:id/chats     - Recent chat history")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost%s/?token=<jwt>):", cfg.RelayAddr)
	log.Println("  Message types: join_room, leave_room, chat, draw, update_draw, delete_draw, clear_canvas")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
