package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Display DisplayConfig `mapstructure:"display"`
	Log     LogConfig     `mapstructure:"log"`
}

// StoreConfig holds state store server configuration
type StoreConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	AnimationsFile   string        `mapstructure:"animations_file"`
	RateLimitEnabled bool          `mapstructure:"rate_limit_enabled"`
}

// DisplayConfig holds display client configuration
type DisplayConfig struct {
	StoreURL         string        `mapstructure:"store_url"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
	ResumeDelay      time.Duration `mapstructure:"resume_delay"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	DragThreshold    float64       `mapstructure:"drag_threshold"`
	SpriteDir        string        `mapstructure:"sprite_dir"`
	OverlayAddr      string        `mapstructure:"overlay_addr"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
	Encoding    string `mapstructure:"encoding"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/mimi")

	viper.SetEnvPrefix("MIMI")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional; defaults and env vars are enough to run
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Store defaults. Port 3338 matches what producers expect on loopback.
	viper.SetDefault("store.host", "localhost")
	viper.SetDefault("store.port", 3338)
	viper.SetDefault("store.read_timeout", "15s")
	viper.SetDefault("store.write_timeout", "15s")
	viper.SetDefault("store.idle_timeout", "60s")
	viper.SetDefault("store.animations_file", "library/animations/animations.jsonl")
	viper.SetDefault("store.rate_limit_enabled", true)

	// Display defaults
	viper.SetDefault("display.store_url", "http://localhost:3338")
	viper.SetDefault("display.poll_interval", "100ms")
	viper.SetDefault("display.watchdog_interval", "1s")
	viper.SetDefault("display.resume_delay", "300ms")
	viper.SetDefault("display.read_timeout", "500ms")
	viper.SetDefault("display.write_timeout", "250ms")
	viper.SetDefault("display.drag_threshold", 5.0)
	viper.SetDefault("display.sprite_dir", "library")
	viper.SetDefault("display.overlay_addr", "localhost:3339")

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.environment", "development")
	viper.SetDefault("log.encoding", "console")
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Store.Port < 1 || cfg.Store.Port > 65535 {
		return fmt.Errorf("invalid store port: %d", cfg.Store.Port)
	}

	if cfg.Store.Host == "" {
		return fmt.Errorf("store host cannot be empty")
	}

	if cfg.Display.StoreURL == "" {
		return fmt.Errorf("display store_url cannot be empty")
	}

	if cfg.Display.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("poll interval must be at least 10ms, got %s", cfg.Display.PollInterval)
	}

	if cfg.Display.WatchdogInterval < cfg.Display.PollInterval {
		return fmt.Errorf("watchdog interval must not be finer than the poll interval")
	}

	if cfg.Display.DragThreshold <= 0 {
		return fmt.Errorf("drag threshold must be positive, got %f", cfg.Display.DragThreshold)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, cfg.Log.Encoding) {
		return fmt.Errorf("invalid log encoding: %s", cfg.Log.Encoding)
	}

	return nil
}

// GetStoreAddr returns the store address in host:port format
func (s *StoreConfig) GetStoreAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
