package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/htmlinclude/internal/cache"
	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/fetch"
	"github.com/vk/htmlinclude/internal/include"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	outMu    sync.Mutex
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	fetcher  fetch.Fetcher
	resolver *include.Resolver

	// pages holds the resolved tree of every page served so far.
	pagesMu sync.Mutex
	pages   map[string]*pageState

	httpServer *http.Server
}

// pageState is the lazily resolved tree of one served page. root and err are
// set before ready is closed.
type pageState struct {
	ready chan struct{}
	root  *include.Node
	err   error
}

// Option customizes an App.
type Option func(*App)

// WithFetcher replaces the fetcher built from the configured base.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, fragment
// cache and resolver. Pages without an output file are written to outW; logs
// go to logW.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.WorkerCount > 0 {
		model.Settings.Workers = appConfig.WorkerCount
	}
	logger.Debug("Configuration loaded and translated into unified model.", "pages", len(model.Pages))

	a := &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
		pages:  make(map[string]*pageState),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.fetcher == nil {
		a.fetcher, err = fetch.New(model.Settings.Base, model.Settings.Timeout)
		if err != nil {
			return nil, err
		}
	}
	logger.Debug("Fetcher configured.", "base", model.Settings.Base, "timeout", model.Settings.Timeout)

	a.resolver = include.NewResolver(a.fetcher,
		include.WithCache(cache.New()),
		include.WithTag(model.Settings.Tag),
	)
	return a, nil
}

// Model returns the loaded configuration. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Resolver returns the application's resolver.
func (a *App) Resolver() *include.Resolver {
	return a.resolver
}

// Close releases the fetcher's resources.
func (a *App) Close() error {
	if c, ok := a.fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
