package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/domain/group"
	"chat-relay/infrastructure/grpc/admin"
	"chat-relay/infrastructure/web"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"

	"github.com/mama165/sdk-go/database"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the shutdown sequence, so deferred cleanups run before exit.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger, logCloser, err := internal.NewLogger(config)
	if err != nil {
		return exitConfig, err
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Group state
	telemetryChan := make(chan event.Event, config.BufferSize)
	directory, err := runtime.NewDirectory(logger, auth.NewArgon2Hasher(config.PasscodeParams()))
	if err != nil {
		return exitRuntime, fmt.Errorf("group directory init failed: %w", err)
	}

	store, closeStore, err := buildStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	moderator, err := buildModerator(config, logger)
	if err != nil {
		return exitConfig, err
	}

	// 3. Supervision & Orchestration
	registry := runtime.NewRegistry(logger)
	hub := runtime.NewHub(logger, directory, store, registry, moderator, telemetryChan)
	lifecycle := runtime.NewLifecycleTracker(logger, registry, directory, telemetryChan)
	supervisor := workers.NewSupervisor(logger, telemetryChan, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, supervisor, hub, lifecycle,
		config.NumberOfWorkers, config.BufferSize)

	stats := observability.NewStats()
	stats.CountConnectionsWith(registry)
	orchestrator.Add(
		workers.NewTelemetryWorker(logger, telemetryChan,
			event.NewStatsHandler(logger, stats),
			event.NewCensorshipHandler(logger),
		),
		workers.NewHealthMonitoringWorker(logger, telemetryChan, config.MetricInterval),
		workers.NewChannelCapacityWorker(logger,
			append(orchestrator.Channels(), workers.NamedChannel{Name: "telemetry", Channel: telemetryChan}),
			telemetryChan, config.MetricInterval),
	)

	orchestratorDone := make(chan error, 1)
	go func() { orchestratorDone <- orchestrator.Start(ctx) }()

	// 4. Listeners
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}
	adminListener, err := net.Listen("tcp", config.AdminAddress())
	if err != nil {
		_ = listener.Close()
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.AdminAddress(), err)
	}

	chat := ws.NewHandler(logger, lifecycle, orchestrator, ws.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		BufferSize:   config.ConnectionBufferSize,
	}, config.Origins())
	httpServer := &http.Server{
		Handler:           web.NewRouter(logger, chat, stats),
		ReadHeaderTimeout: config.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	adminServer := admin.NewServer(logger)

	// Use an error channel to capture Serve() issues asynchronously.
	errChan := make(chan error, 2)
	go func() {
		logger.Info("Starting relay", "address", listener.Addr().String(), "at", time.Now().UTC())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()
	go func() {
		if err := adminServer.Serve(adminListener); err != nil {
			errChan <- err
		}
	}()
	adminServer.SetServing(true)

	// 5. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	case err := <-orchestratorDone:
		if ctx.Err() == nil {
			code, runErr = exitRuntime, errors.Join(errors.New("orchestrator stopped unexpectedly"), err)
		}
	}

	// 6. Graceful shutdown: stop accepting, close connections, drain workers.
	logger.Info("Shutting down gracefully...")
	adminServer.SetServing(false)
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	chat.Wait()
	orchestrator.Stop()
	adminServer.Stop(shutdownCtx)
	logger.Info("Program stopped cleanly", "stats", stats.Snapshot())

	return code, runErr
}

func buildStore(ctx context.Context, config internal.Config, logger *slog.Logger) (contract.MessageStore, func(), error) {
	if config.HistoryBackend != internal.BackendBadger {
		return runtime.NewMemoryStore(group.HistoryCapacity), func() {}, nil
	}

	db, err := repositories.OpenInMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("database opening failed: %w", err)
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.InspectPort, endpoint))
		database.StartDebugServer(db, config.InspectPort, endpoint, repositories.InspectRow)
	}
	closeDB := func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}
	return repositories.NewHistoryRepository(db, logger, group.HistoryCapacity), closeDB, nil
}

// buildModerator returns a nil interface when no word list is configured.
func buildModerator(config internal.Config, logger *slog.Logger) (contract.Moderator, error) {
	if config.ModerationWordsFile == "" {
		return nil, nil
	}
	words, err := moderation.LoadWords(os.DirFS(filepath.Dir(config.ModerationWordsFile)),
		filepath.Base(config.ModerationWordsFile))
	if err != nil {
		return nil, fmt.Errorf("unable to load censored words: %w", err)
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(words, char, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Moderation enabled", "words", len(words))
	return moderator, nil
}
