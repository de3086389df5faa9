// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the whiteboard process reads at startup.
type Config struct {
	HTTPPort   string
	RelayAddr  string
	CORSOrigin string

	// CookieSecure marks the token cookie Secure.
	CookieSecure bool

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	StoreTimeout time.Duration
	RateLimit    float64
	RateBurst    int
	SendBuffer   int

	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
// Every missing or invalid key is reported in a single error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using the given lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	l := loader{lookup: lookup}

	cfg := &Config{
		HTTPPort:      l.str("PORT", "3000"),
		RelayAddr:     l.str("RELAY_ADDR", ":8080"),
		CORSOrigin:    l.str("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		CookieSecure:  l.boolean("COOKIE_SECURE", false),
		JWTSecret:     l.required("JWT_SECRET"),
		JWTIssuer:     l.str("JWT_ISSUER", "whiteboard"),
		JWTTTL:        l.duration("JWT_TTL", time.Hour),
		DBDriver:      l.oneOf("DB_DRIVER", "sqlite", "sqlite", "postgres"),
		DBDSN:         l.str("DB_DSN", "whiteboard.db"),
		RedisAddr:     l.str("REDIS_ADDR", ""),
		RedisPassword: l.str("REDIS_PASSWORD", ""),
		CacheTTL:      l.duration("CACHE_TTL", 5*time.Minute),
		StoreTimeout:  l.duration("RELAY_STORE_TIMEOUT", 5*time.Second),
		RateLimit:     l.float("RELAY_RATE_LIMIT", 20),
		RateBurst:     l.integer("RELAY_RATE_BURST", 40),
		SendBuffer:    l.integer("RELAY_SEND_BUFFER", 256),
		LogLevel:      l.oneOf("LOG_LEVEL", "info", "info", "error"),

		ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if cfg.SendBuffer <= 0 {
		l.invalid = append(l.invalid, "RELAY_SEND_BUFFER")
	}

	if err := l.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type loader struct {
	lookup  func(string) (string, bool)
	missing []string
	invalid []string
}

func (l *loader) value(key string) (string, bool) {
	v, ok := l.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (l *loader) str(key, def string) string {
	if v, ok := l.value(key); ok {
		return v
	}
	return def
}

func (l *loader) required(key string) string {
	v, ok := l.value(key)
	if !ok {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) oneOf(key, def string, allowed ...string) string {
	v, ok := l.value(key)
	if !ok {
		return def
	}
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	l.invalid = append(l.invalid, key)
	return def
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := l.value(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		l.invalid = append(l.invalid, key)
		return def
	}
	return d
}

func (l *loader) integer(key string, def int) int {
	v, ok := l.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		l.invalid = append(l.invalid, key)
		return def
	}
	return n
}

func (l *loader) float(key string, def float64) float64 {
	v, ok := l.value(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		l.invalid = append(l.invalid, key)
		return def
	}
	return f
}

func (l *loader) boolean(key string, def bool) bool {
	v, ok := l.value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.invalid = append(l.invalid, key)
		return def
	}
	return b
}

func (l *loader) err() error {
	var parts []string
	if len(l.missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(l.missing, ", "))
	}
	if len(l.invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(l.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("configuration error (%s)", strings.Join(parts, "; "))
}
