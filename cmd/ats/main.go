package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sreekeshm77/ATS-project/internal/cli"
	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Populate the environment from a local .env file if one exists,
	// before viper reads ATS_* variables
	_ = godotenv.Load()

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

	// Pull Vault-held secrets into the configuration before any command
	// runs. With Vault disabled this is a no-op.
	if err := config.OverlayVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Vault secret overlay failed")
		os.Exit(1)
	}

	// Log startup
	logger.Info("Starting ats application",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
