package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT"        envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel    slog.Level

	// Empty RedisURL keeps progress in memory
	RedisURL    string        `env:"REDIS_URL"`
	ProgressTTL time.Duration `env:"PROGRESS_TTL" envDefault:"0s"`

	// Empty SQLitePath keeps the consequence ledger in memory
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/consequences.db"`

	ContentDir    string   `env:"CONTENT_DIR"    envDefault:"data"`
	RomanceConfig string   `env:"ROMANCE_CONFIG" envDefault:"data/romance.toml"`
	EntryPoints   []string `env:"ENTRY_POINTS"   envSeparator:","`

	// LockBackend is "memory" or "redis"
	LockBackend string        `env:"LOCK_BACKEND" envDefault:"memory"`
	LockTTL     time.Duration `env:"LOCK_TTL"     envDefault:"10s"`

	RandomSeed uint64 `env:"RANDOM_SEED"`
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LockBackend = strings.ToLower(cfg.LockBackend)

	switch cfg.LockBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.LockBackend)
	}
	if cfg.LockBackend == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_URL")
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
