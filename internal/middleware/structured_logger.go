// Package middleware provides the HTTP middleware for the analysis API:
// structured request logging and per-request tracing.
package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StructuredLoggerConfig holds configuration for structured request logging.
type StructuredLoggerConfig struct {
	// SkipPaths are paths that should not be logged (e.g., health checks)
	SkipPaths []string
	// Logger is the zerolog logger to use (defaults to global log)
	Logger *zerolog.Logger
	// SlowRequestThreshold logs slow requests with WARN level (0 = disabled)
	SlowRequestThreshold time.Duration
}

// DefaultStructuredLoggerConfig returns default configuration. Analysis runs
// against large projects routinely take seconds, so the slow threshold is
// generous.
func DefaultStructuredLoggerConfig() StructuredLoggerConfig {
	return StructuredLoggerConfig{
		SkipPaths:            []string{"/health", "/metrics"},
		SlowRequestThreshold: 30 * time.Second,
	}
}

// StructuredLogger returns a middleware that logs requests with structured
// logging.
func StructuredLogger(config ...StructuredLoggerConfig) fiber.Handler {
	cfg := DefaultStructuredLoggerConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if skip[path] {
			return c.Next()
		}

		start := time.Now()

		requestID := c.Locals("requestid")
		if requestID == nil {
			requestID = c.Get("X-Request-ID", "")
		}

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		var logEvent *zerolog.Event
		switch {
		case err != nil:
			logEvent = logger.Error().Err(err)
		case status >= 500:
			logEvent = logger.Error()
		case status >= 400:
			logEvent = logger.Warn()
		case cfg.SlowRequestThreshold > 0 && duration > cfg.SlowRequestThreshold:
			logEvent = logger.Warn().Bool("slow_request", true)
		default:
			logEvent = logger.Info()
		}

		logEvent.
			Str("request_id", toString(requestID)).
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Int("status", status).
			Int64("duration_ms", duration.Milliseconds()).
			Int("response_bytes", len(c.Response().Body())).
			Msg("HTTP request")

		return err
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
