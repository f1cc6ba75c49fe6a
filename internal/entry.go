// Package internal provides the main application initialization and
// runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// runtime bundles the initialized application components.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	db     *store.SQLite
	files  storage.Provider
	engine *reconcile.Engine
	broker *sse.Broker
}

func (r *runtime) close() {
	if r.broker != nil {
		r.broker.Close()
	}
	_ = r.db.Close()
}

// initRuntime loads components shared by every command. withBroker
// controls whether an SSE broker is started (long-running serve mode
// only); logOut is where the JSON log handler writes (stderr for the
// stdio MCP transport, stdout otherwise).
func initRuntime(cfg *Config, withBroker bool, logOut io.Writer) (*runtime, error) {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	// Ensure the backup directory exists.
	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Backup.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, db: db, files: files}
	if withBroker {
		rt.broker = sse.NewBroker(2 * time.Second)
	}

	var events reconcile.EventFunc
	if rt.broker != nil {
		events = func(res reconcile.Result) {
			rt.broker.PublishSyncEvent(string(res.Action), res.BackupFile, res.DocumentID, res.Success)
		}
	}

	rt.engine = reconcile.NewEngine(db, files, logger, reconcile.Options{
		ConflictWindow:   time.Duration(cfg.Sync.ConflictWindowSeconds) * time.Second,
		TitleMatchLimit:  cfg.Sync.TitleMatchLimit,
		ContentPrefixLen: cfg.Sync.ContentPrefixLen,
		ScanLimit:        cfg.Sync.ScanLimit,
		ScanBatchSize:    cfg.Sync.ScanBatchSize,
		ImageDir:         cfg.Sync.ImageDir,
	}, events)

	return rt, nil
}

// Run starts the long-running service: HTTP API, SSE stream, and the
// backup-directory watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	rt, err := initRuntime(cfg, true, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backup_path", cfg.Backup.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc := api.NewService(rt.engine, rt.files)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the backup directory and publish predicted actions.
	g.Go(func() error {
		if err := rt.engine.Watch(gCtx, rt.files.Root(), func(res reconcile.Result) {
			rt.broker.PublishSyncEvent("preview."+string(res.Action), res.BackupFile, res.DocumentID, res.Success)
		}); err != nil {
			rt.logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		rt.logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			rt.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			rt.logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}

// RunSync performs a one-shot reconciliation sweep and prints the report
// as JSON.
func RunSync(ctx context.Context, cfg *Config, userID int64, dryRun bool) error {
	rt, err := initRuntime(cfg, false, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	report := rt.engine.Sweep(ctx, userID, dryRun)
	return printJSON(report)
}

// RunExport performs a one-shot bulk export and prints the report as JSON.
func RunExport(ctx context.Context, cfg *Config, userID int64) error {
	rt, err := initRuntime(cfg, false, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	report := rt.engine.ExportAll(ctx, userID)
	return printJSON(report)
}

// RunMCP serves the MCP stdio transport. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(_ context.Context, cfg *Config) error {
	rt, err := initRuntime(cfg, false, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	return mcpserver.New(rt.engine, rt.files).ServeStdio()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
