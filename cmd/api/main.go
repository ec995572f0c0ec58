// @title Todo API
// @version 1.0
// @description A simple TODO API
// @BasePath /
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-backend/infrastructure/config"
	"todo-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container; an unreachable store is fatal here
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	if cfg.SeedSampleData {
		if err := container.TodoService.SeedSampleData(ctx); err != nil {
			logger.Error("Failed to seed sample data", zap.Error(err))
		}
	}

	// Hot reload of the log level when a config file is in use
	if cfg.ConfigFile != "" {
		watcher, err := config.NewWatcher(cfg, container.LogLevel, logger)
		if err != nil {
			logger.Warn("Config hot reloading disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(next *config.Config) {
				logger.Info("Configuration reloaded",
					zap.String("file", next.ConfigFile),
					zap.String("log_level", next.LogLevel),
				)
			})
			defer watcher.Stop()
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreDriver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	}

	// Graceful shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Close the store and flush traces
	cleanup()

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
