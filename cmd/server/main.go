package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tso500-cohort-explorer/internal/api"
	"github.com/tso500-cohort-explorer/internal/app"
	"github.com/tso500-cohort-explorer/internal/logging"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the cohort explorer HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closer, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer closer.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start cohort engine")
	}
	defer engine.Close()

	var breaker api.BreakerState
	if engine.Breaker != nil {
		breaker = engine.Breaker
	}
	server := api.NewServer(cfg, engine.Service, engine.Dataset, breaker, logger)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return err
	}

	logger.Info("Server stopped")
	return nil
}
