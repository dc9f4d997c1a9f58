// Package server hosts the pagelet engine behind a Fiber HTTP server:
// request translation, progressive body streaming, the live update
// websocket, health and metrics endpoints, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/live"
	pageletmiddleware "github.com/karloscodes/pagelet/middleware"
)

// ServerConfig provides server configuration with sensible defaults.
type ServerConfig struct {
	// Core dependencies (required)
	Logger     pagelet.Logger
	Dispatcher *pagelet.Dispatcher

	// Hub, when set, serves the live update websocket under /_live/:id.
	Hub *live.Hub

	// Metrics, when set, records HTTP metrics and exposes /metrics.
	Metrics *pageletmiddleware.Metrics

	// Fiber configuration
	ErrorHandler   fiber.ErrorHandler
	Concurrency    int
	ProxyHeader    string
	TrustedProxies []string
	ReadTimeout    time.Duration

	// Static assets configuration
	EnableStaticAssets bool
	StaticDirectory    string
	StaticPrefix       string

	// Middleware configuration
	EnableRequestID     bool
	EnableRecover       bool
	EnableHelmet        bool
	EnableRequestLogger bool

	// EnableCompress turns on response compression. Off by default:
	// compression buffers output and defeats progressive flushing.
	EnableCompress bool

	// EnableRateLimiter turns on per-IP rate limiting.
	EnableRateLimiter  bool
	RateLimiterOptions []pageletmiddleware.RateLimiterOption
}

// DefaultServerConfig returns a configuration with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Concurrency: 256 * 1024,
		ReadTimeout: 30 * time.Second,

		EnableStaticAssets: true,
		StaticPrefix:       "/assets",

		EnableRequestID:     true,
		EnableRecover:       true,
		EnableHelmet:        true,
		EnableRequestLogger: true,
	}
}

// Server is the HTTP front of one pagelet application.
type Server struct {
	app        *fiber.App
	cfg        *ServerConfig
	dispatcher *pagelet.Dispatcher
	hub        *live.Hub
	log        pagelet.Logger
}

// NewServer creates a server around a dispatcher.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("server: logger is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("server: dispatcher is required")
	}

	fiberCfg := fiber.Config{
		DisableDefaultDate:    true,
		DisableStartupMessage: true,
		Concurrency:           cfg.Concurrency,
		ReadTimeout:           cfg.ReadTimeout,
		// No WriteTimeout: responses stream for as long as async fragments
		// take to arrive.
	}

	if cfg.ProxyHeader != "" {
		fiberCfg.ProxyHeader = cfg.ProxyHeader
	}
	if len(cfg.TrustedProxies) > 0 {
		fiberCfg.TrustedProxies = cfg.TrustedProxies
	}

	if cfg.ErrorHandler != nil {
		fiberCfg.ErrorHandler = cfg.ErrorHandler
	} else {
		fiberCfg.ErrorHandler = defaultErrorHandler(cfg.Logger)
	}

	server := &Server{
		app:        fiber.New(fiberCfg),
		cfg:        cfg,
		dispatcher: cfg.Dispatcher,
		hub:        cfg.Hub,
		log:        cfg.Logger,
	}

	server.setupGlobalMiddleware()
	server.setupStaticAssets()
	server.setupRoutes()

	return server, nil
}

// setupGlobalMiddleware applies standard middleware to all routes.
func (s *Server) setupGlobalMiddleware() {
	if s.cfg.EnableRequestID {
		s.app.Use(requestid.New())
	}

	if s.cfg.EnableRecover {
		s.app.Use(pageletmiddleware.Recover(s.log))
	}

	if s.cfg.EnableHelmet {
		s.app.Use(pageletmiddleware.Helmet())
	}

	if s.cfg.EnableCompress {
		s.app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if s.cfg.EnableRateLimiter {
		s.app.Use(pageletmiddleware.RateLimiter(s.cfg.RateLimiterOptions...))
	}

	if s.cfg.EnableRequestLogger {
		s.app.Use(pageletmiddleware.RequestLogger(s.log))
	}

	if s.cfg.Metrics != nil {
		s.app.Use(s.cfg.Metrics.Handler())
	}
}

// setupStaticAssets configures static file serving.
func (s *Server) setupStaticAssets() {
	if !s.cfg.EnableStaticAssets || s.cfg.StaticDirectory == "" {
		return
	}

	prefix := s.cfg.StaticPrefix
	if prefix == "" {
		prefix = "/assets"
	}

	s.app.Static(prefix, s.cfg.StaticDirectory, fiber.Static{
		Compress:      true,
		ByteRange:     true,
		Browse:        false,
		CacheDuration: 24 * time.Hour,
	})
}

// setupRoutes registers the built-in endpoints and the catch-all dispatch.
func (s *Server) setupRoutes() {
	s.app.Get("/_health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if s.cfg.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	if s.hub != nil {
		s.setupLiveRoutes()
	}

	// Everything else goes through the engine.
	s.app.All("/*", s.dispatch)
}

// App returns the underlying Fiber application for advanced usage.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server on the given port.
func (s *Server) Start(port string) error {
	s.log.Info("server started and ready to accept requests", "port", port)
	return s.app.Listen(":" + port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			s.log.Error("server error", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// defaultErrorHandler backstops errors that escape the engine, such as
// registry configuration defects surfacing at request time.
func defaultErrorHandler(logger pagelet.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("request failed",
			"error", err,
			"status", code,
			"path", c.Path(),
			"method", c.Method(),
		)

		if c.Accepts(fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
			return c.Status(code).JSON(fiber.Map{
				"error":   StatusCodeName(code),
				"message": err.Error(),
			})
		}

		return c.Status(code).SendString(statusHTML(code, StatusCodeName(code), ""))
	}
}
