// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/contextbridge/internal/contextservice"
	"github.com/starford/contextbridge/internal/mcpserver"
	"github.com/starford/contextbridge/internal/sqlitestore"
	"github.com/starford/contextbridge/internal/storage"
)

// Run serves the MCP tools over the application's stdin/stdout until the
// input closes, ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// stdout carries the protocol, so logs go to stderr.
	logger := newLogger(cfg.App, app.stderr)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("store", cfg.Store.Backend),
		slog.String("default_project", cfg.Context.DefaultProject),
		slog.Bool("auto_create_projects", cfg.Context.AutoCreateProjects),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer closeStore()

	svc := contextservice.NewService(store, contextservice.Settings{
		DefaultProject:     cfg.Context.DefaultProject,
		AutoCreateProjects: cfg.Context.AutoCreateProjects,
		SessionPrefix:      cfg.Context.SessionPrefix,
	}, logger)
	srv := mcpserver.New(svc, logger)

	g, gCtx := errgroup.WithContext(ctx)
	gCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio", slog.String("version", mcpserver.Version))
		err := srv.ServeStdio(gCtx, app.stdin, app.stdout)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openStore builds the configured backend and returns a close function for it.
func openStore(cfg *Config) (storage.Provider, func(), error) {
	switch cfg.Store.Backend {
	case StoreSQLite:
		s, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case StoreNotion:
		var client *http.Client
		if cfg.Notion.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Notion.Timeout}
		}
		n, err := storage.NewNotion(storage.NotionConfig{
			Token:              cfg.Notion.Token,
			ProjectsDatabaseID: cfg.Notion.ProjectsDatabaseID,
			ChatsDatabaseID:    cfg.Notion.ChatsDatabaseID,
			CoverURL:           cfg.Notion.CoverURL,
			HTTPClient:         client,
		})
		if err != nil {
			return nil, nil, err
		}
		return n, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
