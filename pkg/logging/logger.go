// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is attached to every entry as "service" when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Output:  os.Stderr,
		Service: "pokeapi-explorer",
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.Kitchen}
	}

	// Create logger with timestamp
	lctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		lctx = lctx.Str("service", cfg.Service)
	}
	logger := lctx.Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name; unknown names yield LevelInfo.
func ParseLevel(s string) LogLevel {
	switch l := LogLevel(strings.ToLower(s)); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l
	case "warning":
		return LevelWarn
	}
	return LevelInfo
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRequestID returns ctx carrying a logger tagged with the request id.
func WithRequestID(ctx context.Context, logger zerolog.Logger, requestID string) context.Context {
	l := logger.With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Response cache operations (hit/miss, key, TTL)
//   - Query cache hits and fetch failures
//   - Request flow (conditional requests, ETags)
//   - Page and detail load completion
//
// Info: Normal operation events
//   - Successful retries
//   - Server startup/shutdown
//   - Query cache janitor lifecycle
//
// Warn: Warning conditions that don't prevent operation
//   - Upstream back-pressure (429/503 with Retry-After)
//   - Retry attempts exhausted
//   - Response cache errors (fallback to direct request)
//   - Failed list or pokemon fetches
//
// Error: Error conditions requiring attention
//   - Network failures talking to PokeAPI
//   - Server failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (pokeapi-client, query-cache, explorer, server)
//   - request_id: inbound request id (X-Request-ID)
//   - url: upstream URL
//   - key: query cache key
//   - status: HTTP status code
//   - duration: request or load duration
//   - error_class: error classification (client, server, rate_limit, network)
//   - etag: ETag value for conditional requests
//   - ttl: response cache entry TTL
