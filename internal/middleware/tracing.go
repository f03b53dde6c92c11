package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// Enabled controls whether tracing is active
	Enabled bool
	// SkipPaths are paths that should not be traced
	SkipPaths []string
}

// DefaultTracingConfig returns sensible defaults.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// Tracing returns a Fiber middleware that creates a span per HTTP request.
func Tracing(cfg TracingConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	tracer := otel.Tracer("pageweight-http")

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if skip[path] {
			return c.Next()
		}

		ctx, span := tracer.Start(c.UserContext(),
			fmt.Sprintf("%s %s", c.Method(), c.Route().Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(path),
				semconv.ClientAddress(c.IP()),
			),
		)
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}

		return err
	}
}
