package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/api"
	"github.com/mimi-overlay/mimi/pkg/config"
)

func main() {
	// Initialize configuration and logger
	cfg, log, err := config.Initialize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Ensure logger is flushed on exit
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting avatar state store",
		zap.String("version", "0.1.0"),
		zap.Int("port", cfg.Store.Port),
	)

	serverConfig := api.ServerConfig{
		Port:             cfg.Store.Port,
		Host:             cfg.Store.Host,
		ReadTimeout:      cfg.Store.ReadTimeout,
		WriteTimeout:     cfg.Store.WriteTimeout,
		IdleTimeout:      cfg.Store.IdleTimeout,
		AnimationsFile:   cfg.Store.AnimationsFile,
		RateLimitEnabled: cfg.Store.RateLimitEnabled,
	}

	apiServer, err := api.NewServer(serverConfig, log)
	if err != nil {
		log.Fatal("Failed to create state store server", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down state store...")
		cancel()
	}()

	// Start server
	if err := apiServer.Start(ctx); err != nil {
		log.Error("Server error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("State store gracefully stopped")
}
