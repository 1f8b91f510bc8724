// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/schemasync/internal/mcpserver"
	"github.com/starford/schemasync/internal/resolver"
	"github.com/starford/schemasync/internal/rewriter"
	"github.com/starford/schemasync/internal/storage"
	"github.com/starford/schemasync/internal/syncer"
	"github.com/starford/schemasync/internal/templateservice"
	"github.com/starford/schemasync/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeSync, out: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Logs go to stderr: stdout carries status lines and the MCP stream.
	logger := newLogger(os.Stderr, cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("migrations_path", cfg.Migrations.Path),
		slog.String("registry_path", cfg.Registry.Path),
		slog.String("marker", cfg.Rewrite.Marker),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize storage. A missing migrations directory ends the run here.
	store, err := storage.NewFS(cfg.Migrations.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	res, err := resolver.New(store.Root(), cfg.Migrations.Extension)
	if err != nil {
		return fmt.Errorf("init resolver: %w", err)
	}

	svc := templateservice.NewService(store, res, rewriter.New(cfg.Rewrite.Marker), cfg.Registry.Path, logger,
		templateservice.Options{FailOnUnmatched: cfg.Sync.FailOnUnmatched})

	switch app.mode {
	case ModeSync:
		return runSync(ctx, svc, app.out, app.dryRun)
	case ModeCheck:
		return runCheck(ctx, svc, app.out)
	case ModeList:
		return runList(ctx, svc, app.out)
	case ModeWatch:
		return runWatch(ctx, svc, cfg, app.out, logger)
	case ModeMCP:
		logger.Info("MCP server starting on stdio")
		return mcpserver.New(svc, app.version).ServeStdio()
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runSync(ctx context.Context, svc *templateservice.Service, out io.Writer, dryRun bool) error {
	rep, err := svc.Synchronize(ctx, dryRun, "", syncer.StatusWriter(out, dryRun))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, rep.Summary())
	return rep.Err()
}

func runCheck(ctx context.Context, svc *templateservice.Service, out io.Writer) error {
	rep, err := svc.Synchronize(ctx, true, "", syncer.StatusWriter(out, true))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, rep.Summary())
	if err := rep.Err(); err != nil {
		return err
	}
	if n := len(rep.Changed()); n > 0 {
		return fmt.Errorf("%d file(s) out of date with the registry", n)
	}
	return nil
}

func runList(ctx context.Context, svc *templateservice.Service, out io.Writer) error {
	matches, err := svc.Matches(ctx)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintln(out, m.Pattern)
		if len(m.Files) == 0 {
			fmt.Fprintln(out, "  (no matches)")
		}
		for _, f := range m.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	return nil
}

func runWatch(ctx context.Context, svc *templateservice.Service, cfg *Config, out io.Writer, logger *slog.Logger) error {
	once := func() {
		if err := runSync(ctx, svc, out, false); err != nil {
			logger.Error("sync failed", slog.String("error", err.Error()))
		}
	}
	once()

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)

	g.Go(func() error {
		defer stop()
		return watch.Watch(watchCtx, watch.Config{
			MigrationsDir: cfg.Migrations.Path,
			RegistryFile:  svc.RegistryPath(),
			Extension:     cfg.Migrations.Extension,
			Debounce:      cfg.Sync.WatchDebounce,
		}, logger, once)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-watchCtx.Done():
			logger.Info("Context cancelled, stopping watcher")
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped")
	return nil
}
