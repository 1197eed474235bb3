package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"helpdesk/auth"
	"helpdesk/infrastructure/httpapi"
	"helpdesk/internal"
	"helpdesk/moderation"
	"helpdesk/notify"
	"helpdesk/repositories"
	"helpdesk/runtime"
	"helpdesk/runtime/workers"
)

// Exit codes to provide meaningful status to the operating system or a
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. This pattern ensures all defers (like the
// database cleanup) execute before the program exits, and keeps the
// initialization logic testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := internal.LoggerFromLevel(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are
		// flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation
	words, err := moderation.LoadEmbeddedWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading censored words failed: %w", err)
	}
	logger.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderator build failed: %w", err)
	}

	// 4. Engine, registry, and fan-out pipeline
	sessionRepository := repositories.NewSessionRepository(db, logger)
	participantRepository := repositories.NewParticipantRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)

	engine := runtime.NewEngine(logger,
		sessionRepository, participantRepository, messageRepository,
		moderator, config.BufferSize)
	registry := runtime.NewRegistry()
	notifier := workers.NewNotifier(logger, engine.Events(),
		notify.NewRouter(), registry, config.SinkTimeout)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(notifier)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting notifier under supervision")
		supervisor.Run(ctx)
	}()

	// 6. HTTP server (request surface + channel surface)
	tokens := auth.NewTokens(config.AuthTokenSecret, config.AuthTokenDuration)
	api := httpapi.NewServer(logger, engine, participantRepository, registry,
		tokens, config.ConnectionBufferSize, config.WriteTimeout)

	address := fmt.Sprintf("0.0.0.0:%d", config.Port)
	server := &http.Server{Addr: address, Handler: api.Router()}

	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final cleanup (graceful shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
