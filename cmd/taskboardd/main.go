// Command taskboardd is the Taskboard server daemon. It opens the stores,
// connects the chat platform gateway, runs the startup reconciliation sweep,
// and serves the admin API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/taskboard/bot"
	"github.com/GoCodeAlone/taskboard/config"
	"github.com/GoCodeAlone/taskboard/engine"
	"github.com/GoCodeAlone/taskboard/events"
	"github.com/GoCodeAlone/taskboard/internal/version"
	"github.com/GoCodeAlone/taskboard/messenger"
	"github.com/GoCodeAlone/taskboard/messenger/mock"
	"github.com/GoCodeAlone/taskboard/messenger/rest"
	"github.com/GoCodeAlone/taskboard/server"
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

var configPath = flag.String("config", "taskboard.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting taskboardd",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	tasks, err := task.NewSQLiteStore(filepath.Join(cfg.DataDir, "tasks.db"))
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}
	defer tasks.Close() //nolint:errcheck

	workspaces, err := workspace.NewSQLiteStore(filepath.Join(cfg.DataDir, "workspaces.db"))
	if err != nil {
		log.Fatalf("Failed to open workspace store: %v", err)
	}
	defer workspaces.Close() //nolint:errcheck

	msgr, err := newMessenger(cfg.Messenger)
	if err != nil {
		log.Fatalf("Failed to configure messenger: %v", err)
	}

	eng := engine.New(tasks, workspaces, msgr, logger)
	bus := events.NewInMemoryBus()

	maxAge := time.Duration(cfg.MaxInteractionAgeMinutes) * time.Minute
	dispatcher := bot.New(eng, bus, logger, maxAge)

	// Repair the rendered view before accepting any events.
	if err := eng.Reconcile(context.Background()); err != nil {
		logger.Warn("startup reconciliation incomplete", "err", err)
	}
	dispatcher.Start()
	defer dispatcher.Stop()

	srv := server.New(*cfg, version.Version, logger)
	srv.SetEngine(eng)
	srv.SetTaskStore(tasks)
	srv.SetWorkspaceStore(workspaces)
	srv.SetBus(bus)

	// Mirror every gateway event to connected SSE clients.
	kinds := []events.Kind{
		events.KindActionInvoked, events.KindTaskSubmitted, events.KindTaskEdited,
		events.KindUserAssigned, events.KindChannelsConfigured,
		events.KindSummaryRefresh, events.KindMessageDeleted,
	}
	for _, kind := range kinds {
		bus.Subscribe(kind, func(_ context.Context, ev *events.Event) error {
			srv.BroadcastEvent(string(ev.Kind), ev)
			return nil
		})
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("Taskboard server running on %s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	}

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newMessenger(cfg config.MessengerConfig) (messenger.Messenger, error) {
	switch cfg.Kind {
	case "", "mock":
		return mock.New(), nil
	case "rest":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("messenger.base_url is required for kind rest")
		}
		return rest.New(rest.Config{
			BaseURL:     cfg.BaseURL,
			Token:       cfg.Token,
			MinInterval: time.Duration(cfg.MinIntervalMillis) * time.Millisecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown messenger kind %q", cfg.Kind)
	}
}
