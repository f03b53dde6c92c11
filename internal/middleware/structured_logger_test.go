package middleware

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedApp(t *testing.T, cfg StructuredLoggerConfig) (*fiber.App, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	cfg.Logger = &logger

	app := fiber.New()
	app.Use(StructuredLogger(cfg))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("healthy") })
	return app, &buf
}

func TestStructuredLogger(t *testing.T) {
	t.Run("logs method, path and status", func(t *testing.T) {
		app, buf := newLoggedApp(t, DefaultStructuredLoggerConfig())
		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		out := buf.String()
		assert.Contains(t, out, `"method":"GET"`)
		assert.Contains(t, out, `"path":"/ok"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"level":"info"`)
	})

	t.Run("5xx responses log at error level", func(t *testing.T) {
		app, buf := newLoggedApp(t, DefaultStructuredLoggerConfig())
		resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, buf.String(), `"level":"error"`)
	})

	t.Run("skip paths produce no log line", func(t *testing.T) {
		app, buf := newLoggedApp(t, DefaultStructuredLoggerConfig())
		_, err := app.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}
