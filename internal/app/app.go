// Package app wires configuration into a ready-to-use task service.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"tasker/internal/backend/googletasks"
	"tasker/internal/backend/restapi"
	"tasker/internal/cache"
	"tasker/internal/config"
	"tasker/internal/logging"
	"tasker/internal/observability"
	"tasker/internal/repository"
	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// App is the resilient repository together with the resources it owns.
// It implements service.Service and must be closed after use.
type App struct {
	*repository.Repository

	remote  service.Source
	cache   *cache.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds the remote source, the cache and the repository described by
// cfg. Logs go to logOut.
func New(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := NewLogger(cfg, logOut)

	remote, err := NewRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, cache.Options{
		Driver:      cfg.Cache.Driver,
		Path:        cfg.CachePath(),
		DatabaseURL: cfg.Cache.DatabaseURL,
	}, logger)
	if err != nil {
		return nil, taskerr.FromStorage("open cache", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	repo := repository.New(remote, store,
		repository.WithLogger(logger),
		repository.WithMetrics(metrics),
	)
	logger.Debug("service ready", "backend", cfg.Backend, "cache", store.Driver())

	return &App{
		Repository: repo,
		remote:     remote,
		cache:      store,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Factory adapts New to the CLI's service factory signature.
func Factory(logOut io.Writer) func(context.Context, *config.Config) (service.Service, error) {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		a, err := New(ctx, cfg, logOut)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// NewLogger returns the logger for cfg. --debug wins over log_level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	return logging.New(w, level)
}

// NewRemote builds the remote source selected by cfg.Backend.
// Missing credentials are reported as Unauthorized.
func NewRemote(ctx context.Context, cfg *config.Config) (service.Source, error) {
	switch cfg.Backend {
	case config.BackendREST, "":
		httpClient := restapi.NewHTTPClient(ctx, cfg.REST.Token, cfg.Timeout)
		return restapi.New(cfg.REST.BaseURL, httpClient), nil
	case config.BackendGoogle:
		if !cfg.HasOAuthClient() {
			return nil, taskerr.Errorf(taskerr.Unauthorized, "google", "oauth_client.json not found in %s", cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, taskerr.New(taskerr.Unauthorized, "google", "not logged in (run: tasker login)")
		}
		c, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, &taskerr.Error{Kind: taskerr.Unauthorized, Op: "google", Message: err.Error(), Err: err}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Metrics returns the application metrics.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Remote returns the remote source the repository reads from.
func (a *App) Remote() service.Source { return a.remote }

// Close releases the cache.
func (a *App) Close() error {
	return a.cache.Close()
}
