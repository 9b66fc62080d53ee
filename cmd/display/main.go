package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mimi-overlay/mimi/internal/display"
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

	log.Info("Starting avatar display",
		zap.String("version", "0.1.0"),
		zap.String("store_url", cfg.Display.StoreURL),
	)

	sprites := display.NewSpriteLibrary(cfg.Display.SpriteDir, log)
	if err := sprites.Load(); err != nil {
		log.Fatal("Failed to load sprites", zap.Error(err))
	}

	storeClient := display.NewStoreClient(display.StoreClientConfig{
		BaseURL:      cfg.Display.StoreURL,
		ReadTimeout:  cfg.Display.ReadTimeout,
		WriteTimeout: cfg.Display.WriteTimeout,
	}, log)

	overlay := display.NewOverlayServer(cfg.Display.OverlayAddr, log)

	engine := display.NewEngine(display.EngineConfig{
		PollInterval:     cfg.Display.PollInterval,
		WatchdogInterval: cfg.Display.WatchdogInterval,
		ResumeDelay:      cfg.Display.ResumeDelay,
		DragThreshold:    cfg.Display.DragThreshold,
	}, storeClient, sprites, overlay, log)
	overlay.AttachEngine(engine)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down display...")
		cancel()
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return overlay.Run(groupCtx)
	})
	group.Go(func() error {
		return engine.Run(groupCtx)
	})
	group.Go(func() error {
		return sprites.Watch(groupCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Display error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Display gracefully stopped")
}
