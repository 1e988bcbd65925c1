package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvModelsDir    = "DIACHRON_MODELS_DIR"
	EnvDebug        = "DIACHRON_DEBUG"
	EnvServerPort   = "DIACHRON_SERVER_PORT"
	EnvDatabasePath = "DIACHRON_DATABASE_PATH"
)

// ApplyEnv loads dir/.env when present (without overriding variables already set) and
// then copies the DIACHRON_* variables into cfg.
func ApplyEnv(cfg *Config, dir string) error {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv(EnvModelsDir); ok && v != "" {
		cfg.Models.RootDir = v
	}
	if v, ok := os.LookupEnv(EnvDatabasePath); ok && v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v, ok := os.LookupEnv(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}
	if v, ok := os.LookupEnv(EnvServerPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s: %q", EnvServerPort, v)
		}
		cfg.Server.Port = port
	}
	return nil
}
