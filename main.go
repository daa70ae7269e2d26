package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/vetflash-api/config"
	"github.com/giygas/vetflash-api/data"
	"github.com/giygas/vetflash-api/handlers"
	"github.com/giygas/vetflash-api/health"
	"github.com/giygas/vetflash-api/loader"
	"github.com/giygas/vetflash-api/logging"
	"github.com/giygas/vetflash-api/scheduler"
	"github.com/giygas/vetflash-api/server"
	"github.com/giygas/vetflash-api/session"
	"github.com/giygas/vetflash-api/validation"
	"github.com/joho/godotenv"
)

func main() {
	// Get the working directory and read the env variables
	if err := godotenv.Load(); err != nil {
		// If failed, try loading from executable directory
		if ex, err := os.Executable(); err == nil {
			if err := os.Chdir(filepath.Dir(ex)); err == nil {
				_ = godotenv.Load()
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerWithConfig("logs", cfg.Env, cfg.LogLevel, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
		}
	}()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"data_source", cfg.DataSource,
		"reload_times", cfg.DataReloadTimes,
		"session_ttl", cfg.SessionTTL.String())

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	dataValidator := validation.NewDataValidator()
	sessions := session.NewStore()

	// Loads the dataset before serving; a failed load starts the service degraded
	sched := scheduler.NewScheduler(dataContainer, loader.NewLoader(cfg.DataSource), dataValidator, sessions).
		WithReloadTimes(cfg.DataReloadTimes).
		WithSessionTTL(cfg.SessionTTL)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	healthChecker := health.NewHealthChecker(dataContainer, cfg.DataReloadTimes)
	handler := handlers.NewHTTPHandler(dataContainer, dataValidator, sessions, healthChecker, sched)
	srv := server.NewServer(cfg, handler)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until a signal is received or the server fails
	select {
	case <-quit:
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
		sched.Stop()
		os.Exit(1)
	}

	sched.Stop()

	// Create a context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}
