// Package app wires the transcriptsync subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// drains and tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithProviders). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/transcriptsync/internal/config"
	"github.com/MrWong99/transcriptsync/internal/health"
	"github.com/MrWong99/transcriptsync/internal/observe"
	"github.com/MrWong99/transcriptsync/internal/pipeline"
	"github.com/MrWong99/transcriptsync/internal/resilience"
	"github.com/MrWong99/transcriptsync/internal/server"
	"github.com/MrWong99/transcriptsync/internal/store"
	"github.com/MrWong99/transcriptsync/internal/store/postgres"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg        *config.Config
	configPath string
	watchOpts  []config.WatcherOption
	level      *slog.LevelVar

	// Subsystems: initialised in New, torn down in Shutdown.
	providers *observe.Providers
	store     store.Store
	pipeline  *pipeline.Pipeline
	health    *health.Handler
	server    *server.Server
	watcher   *config.Watcher

	httpServer *http.Server

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a run store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithProviders injects telemetry providers instead of initialising the
// global OpenTelemetry SDK.
func WithProviders(p *observe.Providers) Option {
	return func(a *App) { a.providers = p }
}

// WithLevelVar lets config reloads adjust the level of the process logger.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigWatch polls the config file at path and applies hot-reloadable
// changes while the app runs.
func WithConfigWatch(path string, opts ...config.WatcherOption) Option {
	return func(a *App) {
		a.configPath = path
		a.watchOpts = opts
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It connects to the
// store synchronously, so a misconfigured database fails here rather than on
// the first request.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Telemetry ─────────────────────────────────────────────────────
	if err := a.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}

	// ── 2. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Pipeline ──────────────────────────────────────────────────────
	settings, err := pipeline.SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.pipeline = pipeline.New(
		pipeline.WithMetrics(a.providers.Metrics),
		pipeline.WithSettings(settings),
	)

	// ── 4. HTTP ──────────────────────────────────────────────────────────
	a.health = health.New(health.Checker{Name: "store", Check: a.store.Ping})
	a.server = server.New(a.pipeline, a.store,
		server.WithHealth(a.health),
		server.WithMetrics(a.providers.Metrics),
		server.WithGatherer(a.providers.Gatherer),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	// ── 5. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.ApplyConfig, a.watchOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.watcher = w
		a.closers = append([]func(context.Context) error{func(context.Context) error {
			w.Stop()
			return nil
		}}, a.closers...)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initTelemetry(ctx context.Context) error {
	if a.providers != nil {
		if a.providers.Metrics == nil {
			a.providers.Metrics = observe.DefaultMetrics()
		}
		return nil
	}
	p, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    a.cfg.Telemetry.ServiceName,
		ServiceVersion: a.cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		return err
	}
	a.providers = p
	a.closers = append(a.closers, p.Shutdown)
	return nil
}

// initStore connects to PostgreSQL when a DSN is configured and uses an
// in-memory store otherwise. With memory_fallback set, PostgreSQL outages are
// bridged by an in-memory store behind a circuit breaker.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	limit := a.cfg.Store.MemoryLimit
	if limit == 0 {
		limit = config.DefaultMemoryLimit
	}
	if dsn := a.cfg.Store.PostgresDSN; dsn != "" {
		s, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.store = s
		if a.cfg.Store.MemoryFallback {
			a.store = store.NewFallbackStore(s, store.NewMemStore(limit), resilience.CircuitBreakerConfig{Name: "postgres"})
		}
		slog.Info("run store connected", "backend", "postgres", "memory_fallback", a.cfg.Store.MemoryFallback)
	} else {
		a.store = store.NewMemStore(limit)
		slog.Info("run store ready", "backend", "memory", "limit", limit)
	}
	// Close the store before telemetry so its final metrics are flushed.
	a.closers = append([]func(context.Context) error{func(context.Context) error {
		a.store.Close()
		return nil
	}}, a.closers...)
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.server }

// Pipeline returns the alignment pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig installs the hot-reloadable settings of next. Settings that
// need a restart are logged and left unchanged.
func (a *App) ApplyConfig(prev, next *config.Config) {
	ctx := context.Background()
	d := config.Diff(prev, next)

	if len(d.RestartRequired) > 0 {
		slog.Warn("config change requires restart", "settings", d.RestartRequired)
	}
	if !d.HotChanged() {
		return
	}

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.AlignmentChanged || d.ReshapeChanged || d.ReferenceChanged || d.OutputChanged {
		settings, err := pipeline.SettingsFromConfig(next)
		if err == nil {
			err = a.pipeline.SetSettings(settings)
		}
		if err != nil {
			slog.Error("config reload rejected", "err", err)
			a.providers.Metrics.RecordConfigReload(ctx, observe.StatusError)
			return
		}
		slog.Info("pipeline settings reloaded",
			"alignment", d.AlignmentChanged,
			"reshape", d.ReshapeChanged,
			"reference", d.ReferenceChanged,
			"output", d.OutputChanged,
		)
	}
	a.providers.Metrics.RecordConfigReload(ctx, observe.StatusOK)
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run listens on the configured address and serves until ctx is cancelled,
// then returns ctx.Err(). A listener failure is returned immediately.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.cfg.Server.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is [App.Run] on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.httpServer = &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpServer.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpServer.Serve(ln)
		}
		errCh <- err
	}()

	slog.Info("app running", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown marks the service as draining, stops accepting requests, waits
// for in-flight alignments and tears down all subsystems in order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.health.SetDraining(true)
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
				shutdownErr = err
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
