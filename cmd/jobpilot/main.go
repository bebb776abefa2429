package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jobpilot/internal/cli"
	"jobpilot/internal/config"
	"jobpilot/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment and config file still apply
	_ = godotenv.Load()

	// Create a context that is canceled on interrupt signals. A running
	// apply session treats this as a cancel request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting jobpilot",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"backend", cfg.Backend.BaseURL,
		"auth_source", cfg.Auth.Source)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.LogError(err, "Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
