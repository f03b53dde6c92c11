// Package api exposes the analysis pipeline over HTTP. Requests carry a
// design snapshot plus analysis options, so the server stays stateless
// between runs apart from manual estimates.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analyzer"
	"github.com/fluxbase-eu/pageweight/internal/config"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
	"github.com/fluxbase-eu/pageweight/internal/middleware"
	"github.com/fluxbase-eu/pageweight/internal/observability"
)

// Server is the HTTP front of the analyzer.
type Server struct {
	app     *fiber.App
	config  *config.Config
	metrics *observability.Metrics
	tracer  *observability.Tracer
	manual  *analyzer.ManualService
	client  *fetch.Client
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics overrides the default-registry metrics. Tests pass metrics
// bound to a fresh registry to avoid duplicate registration.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a configured but not yet listening server.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	app := fiber.New(fiber.Config{
		ServerHeader:          "Pageweight",
		AppName:               "Pageweight v1.0.0",
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          errorHandler,
	})

	tracer, err := observability.NewTracer(context.Background(), cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry tracer, tracing will be disabled")
	}

	s := &Server{
		app:    app,
		config: cfg,
		tracer: tracer,
		manual: analyzer.NewManualService(),
		client: fetch.NewClient(fetch.Config{
			Timeout:           cfg.Fetch.Timeout,
			UserAgent:         cfg.Fetch.UserAgent,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics()
	}

	s.setupMiddlewares()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(requestid.New())

	if s.config.Tracing.Enabled && s.tracer.IsEnabled() {
		s.app.Use(middleware.Tracing(middleware.DefaultTracingConfig()))
	}

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Debug,
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.CORS.AllowedOrigins,
		AllowMethods: s.config.CORS.AllowedMethods,
		AllowHeaders: s.config.CORS.AllowedHeaders,
	}))

	s.app.Use(middleware.StructuredLogger())
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", observability.Handler())

	v1 := s.app.Group("/api/v1")
	v1.Post("/analyze", s.handleAnalyze)

	manual := v1.Group("/manual-estimates")
	manual.Get("/", s.handleListManual)
	manual.Post("/", s.handleAddManual)
	manual.Put("/:id", s.handleUpdateManual)
	manual.Delete("/:id", s.handleRemoveManual)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown gracefully drains connections and flushes traces.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	return s.tracer.Shutdown(ctx)
}

// App returns the underlying Fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler handles errors globally
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		log.Error().Err(err).Str("path", c.Path()).Msg("Server error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
