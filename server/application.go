package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/cache"
	"github.com/karloscodes/pagelet/config"
	"github.com/karloscodes/pagelet/live"
	pageletmiddleware "github.com/karloscodes/pagelet/middleware"
)

// NamedMiddleware pairs an engine middleware with its unique name.
type NamedMiddleware struct {
	Name string
	Fn   pagelet.Middleware
}

// ApplicationOptions configure application bootstrapping.
type ApplicationOptions struct {
	// AppName is used for the env var prefix, log files and the cache
	// database filename. Required.
	AppName string

	// Fragments is the application's fragment set. Status fragments are
	// supplied automatically when the registry options leave them unset.
	Fragments []*pagelet.Fragment

	// Registry configures the wrapper and status fragments.
	Registry pagelet.RegistryOptions

	// Middleware are engine middleware layers, run in order.
	Middleware []NamedMiddleware

	// FormHook runs once per request carrying form data.
	FormHook pagelet.FormHook

	// ServerConfig overrides the HTTP server defaults.
	ServerConfig *ServerConfig

	// EnableLive serves the update websocket and broadcasts streamed
	// fragments to it.
	EnableLive bool

	// EnableMetrics records Prometheus metrics and exposes /metrics.
	EnableMetrics bool
}

// Application wires together configuration, logging, the resolution cache,
// the engine and the HTTP server. It manages the complete lifecycle of a
// pagelet application.
type Application struct {
	Config     *config.Config
	Logger     pagelet.Logger
	Registry   *pagelet.Registry
	Dispatcher *pagelet.Dispatcher
	Server     *Server
	Hub        *live.Hub

	store cache.Store
}

// NewApplication constructs a pagelet application from environment
// configuration and the given fragment set.
func NewApplication(opts ApplicationOptions) (*Application, error) {
	cfg, err := config.Load(opts.AppName)
	if err != nil {
		return nil, err
	}

	logger := pagelet.NewLogger(pagelet.LogConfig{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Directory:   cfg.LogsDirectory,
		MaxSizeMB:   cfg.LogsMaxSizeMB,
		MaxBackups:  cfg.LogsMaxBackups,
		MaxAgeDays:  cfg.LogsMaxAgeDays,
		AppName:     cfg.AppName,
	})

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	fragments, regOpts := withDefaultStatusFragments(opts.Fragments, opts.Registry, cfg.IsDevelopment())
	registry, err := pagelet.NewRegistry(fragments, regOpts)
	if err != nil {
		return nil, err
	}

	router := pagelet.NewRouter(registry, store, logger)
	pool := pagelet.NewInstancePool(cfg.InstancePoolSize)

	var hub *live.Hub
	var publish func(bootstrapID, fragmentID, view string)
	if opts.EnableLive {
		hub = live.NewHub(logger)
		publish = hub.Broadcast
	}

	var metrics *pageletmiddleware.Metrics
	var observer pagelet.Observer
	if opts.EnableMetrics {
		metrics = pageletmiddleware.NewMetrics(pageletmiddleware.WithNamespace(cfg.AppName))
		observer = metrics
	}

	dispatcher, err := pagelet.NewDispatcher(pagelet.DispatcherConfig{
		Registry:             registry,
		Router:               router,
		Pool:                 pool,
		Logger:               logger,
		Observer:             observer,
		MaxConcurrentRenders: cfg.MaxConcurrentRenders,
		FormHook:             opts.FormHook,
		Publish:              publish,
	})
	if err != nil {
		return nil, err
	}

	for _, mw := range opts.Middleware {
		if err := dispatcher.Use(mw.Name, mw.Fn); err != nil {
			return nil, err
		}
	}

	serverCfg := opts.ServerConfig
	if serverCfg == nil {
		serverCfg = DefaultServerConfig()
	}
	serverCfg.Logger = logger
	serverCfg.Dispatcher = dispatcher
	serverCfg.Hub = hub
	serverCfg.Metrics = metrics

	server, err := NewServer(serverCfg)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Dispatcher: dispatcher,
		Server:     server,
		Hub:        hub,
		store:      store,
	}, nil
}

// buildStore creates the resolution cache backend the configuration asks
// for, or none when caching is disabled.
func buildStore(cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	if !cfg.CacheEnabled {
		return nil, nil
	}

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	opts := []cache.Option{cache.WithTTL(ttl), cache.WithMaxEntries(cfg.CacheMaxEntries)}

	switch cfg.CacheBackend {
	case "database":
		db, err := cache.OpenDatabase(cache.DatabaseConfig{
			Driver:    cfg.DatabaseDriver,
			DSN:       cfg.DatabasePath,
			EnableWAL: true,
		}, logger)
		if err != nil {
			return nil, err
		}
		return cache.NewDatabaseStore(db, opts...)
	default:
		return cache.NewMemoryStore(opts...), nil
	}
}

// withDefaultStatusFragments fills unset status fragment ids with the
// built-in pages.
func withDefaultStatusFragments(fragments []*pagelet.Fragment, regOpts pagelet.RegistryOptions, isDev bool) ([]*pagelet.Fragment, pagelet.RegistryOptions) {
	defaults := DefaultStatusFragments(isDev)

	if regOpts.NotFoundID == "" {
		regOpts.NotFoundID = DefaultNotFoundID
		fragments = append(fragments, defaults[0])
	}
	if regOpts.ServerErrorID == "" {
		regOpts.ServerErrorID = DefaultServerErrorID
		fragments = append(fragments, defaults[1])
	}
	return fragments, regOpts
}

// Start launches the HTTP server.
func (a *Application) Start() error {
	return a.Server.Start(a.Config.Port)
}

// StartAsync launches the HTTP server asynchronously.
func (a *Application) StartAsync() {
	a.Server.StartAsync(a.Config.Port)
}

// Shutdown gracefully stops the server and the cache backend.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)

	type closer interface{ Close() error }
	if c, ok := a.store.(closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("server: close cache store: %w", cerr)
		}
	}
	return err
}

// Run starts the application and waits for termination signals.
// It handles graceful shutdown with a default timeout of 10 seconds.
func (a *Application) Run() error {
	return a.RunWithTimeout(10 * time.Second)
}

// RunWithTimeout starts the application and waits for termination signals.
// It handles graceful shutdown with the specified timeout.
func (a *Application) RunWithTimeout(timeout time.Duration) error {
	a.StartAsync()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		a.Logger.Error("graceful shutdown failed", "error", err)
		return err
	}

	a.Logger.Info("shutdown complete")
	return nil
}
