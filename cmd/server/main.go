// Package main is the entry point for the CoinMind personal finance service.
// It serves the multi-currency transaction ledger and its analytics over HTTP
// and runs the optional maintenance jobs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/config"
	"github.com/Ahmed-aleryani/coinmind/internal/di"
	"github.com/Ahmed-aleryani/coinmind/internal/scheduler"
	"github.com/Ahmed-aleryani/coinmind/internal/server"
	"github.com/Ahmed-aleryani/coinmind/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from .env and environment variables
// 2. Initializes logging
// 3. Wires all dependencies (ledger database, repositories, services, jobs)
// 4. Schedules maintenance jobs
// 5. Starts the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting CoinMind")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing the ledger writes the final WAL checkpoint
	defer container.Close()

	sched := scheduler.New(log)
	if err := di.ScheduleJobs(sched, jobs, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Container: container,
		Jobs:      sched,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let running jobs finish before the databases close
	sched.Stop()

	log.Info().Msg("Server stopped")
}
