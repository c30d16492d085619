// Package app wires the caches, stores, blob storage, odds client and
// notifications, builds the configured jobs and runs them in the selected
// mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/propscope/oddsjobs/internal/config"
)

// modeFunc runs one operating mode against wired dependencies.
type modeFunc func(a *App, ctx context.Context, deps *Dependencies) error

var modes = map[string]modeFunc{
	"once":     (*App).OnceMode,
	"schedule": (*App).ScheduleMode,
	"status":   (*App).StatusMode,
}

// App holds the configuration and the teardown for whatever Run wired.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	closeOnce sync.Once
	cleanup   func()
}

// New creates an App. Nothing is connected until Run.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "app")),
		cleanup: func() {},
	}
}

// Run wires dependencies and runs the configured mode. once and status
// return when done; schedule blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	mode, ok := modes[strings.ToLower(a.cfg.Mode)]
	if !ok {
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Any("jobs", a.cfg.Jobs),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire: %w", err)
	}
	a.cleanup = cleanup

	return mode(a, ctx, deps)
}

// Close releases everything Run wired. Later calls do nothing.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.logger.Info("shutting down")
		a.cleanup()
	})
}
