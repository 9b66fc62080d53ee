package config

import (
	"fmt"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

// Initialize loads configuration and sets up the global logger
func Initialize() (*Config, *logger.Logger, error) {
	cfg, err := Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerCfg := logger.Config{
		Level:       logger.ParseLevel(cfg.Log.Level),
		Environment: cfg.Log.Environment,
		Encoding:    cfg.Log.Encoding,
	}

	appLogger, err := logger.New(loggerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.SetGlobalLogger(appLogger)

	fields := map[string]interface{}{
		"store_addr":   cfg.Store.GetStoreAddr(),
		"log_level":    cfg.Log.Level,
		"log_encoding": cfg.Log.Encoding,
	}
	appLogger.WithFields(fields).Info("Configuration and logger initialized")

	return cfg, appLogger, nil
}
