// Package bootstrap handles application initialization and lifecycle
// management for the ingestion service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/crimewatch/ingest/internal/logger"
)

const (
	version         = "dev"
	shutdownTimeout = 15 * time.Second
)

// Start initializes and runs the ingestion service until interrupted.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: Setup database
	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	// Phase 3: Setup event publisher (optional)
	publisher := SetupEventPublisher(cfg, log)

	// Phase 4: Wire pipeline, jobs, and HTTP server
	app, err := SetupApp(cfg, db, publisher, log)
	if err != nil {
		return fmt.Errorf("failed to set up application: %w", err)
	}

	// Phase 5: Start scheduler (optional)
	scheduler, err := SetupScheduler(cfg, app.Coordinator, log)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			logger.String("host", cfg.Server.Host),
			logger.Int("port", cfg.Server.Port),
		)
		if runErr := app.Server.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			serverErr <- runErr
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr := <-serverErr:
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := app.Server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("Server shutdown failed", logger.Error(shutdownErr))
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// Let in-flight refresh jobs reach a terminal state before closing
	// the browser and the process.
	app.Jobs.Wait()

	if app.Renderer != nil {
		if closeErr := app.Renderer.Close(); closeErr != nil {
			log.Warn("Browser shutdown failed", logger.Error(closeErr))
		}
	}

	log.Info("Server exited")
	return nil
}
