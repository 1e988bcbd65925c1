// Package config provides configuration loading and structs for the diachron server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Models   ModelsConfig   `yaml:"models"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Render   RenderConfig   `yaml:"render"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// DriftRatePerSecond limits drift requests across all clients.
	DriftRatePerSecond float64 `yaml:"drift_rate_per_second"`
	DriftBurst         int     `yaml:"drift_burst"`
}

// ModelsConfig says where period models live and how they are loaded.
type ModelsConfig struct {
	RootDir     string `yaml:"root_dir"`
	CacheSize   int    `yaml:"cache_size"`
	LoadWorkers int    `yaml:"load_workers"`
}

// AnalysisConfig holds alignment and neighbor settings.
type AnalysisConfig struct {
	DefaultNeighbors int  `yaml:"default_neighbors"`
	MaxNeighbors     int  `yaml:"max_neighbors"`
	AlignWorkers     int  `yaml:"align_workers"`
	UnitNormalize    bool `yaml:"unit_normalize"`
	MinShared        int  `yaml:"min_shared"`
}

// StorageConfig holds the database used for cached transforms and saved drift frames.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	CacheTransforms *bool  `yaml:"cache_transforms"`
}

// CacheTransformsOrDefault returns whether solved transforms are cached; defaults to true.
func (s *StorageConfig) CacheTransformsOrDefault() bool {
	if s.CacheTransforms != nil {
		return *s.CacheTransforms
	}
	return true
}

// RenderConfig holds drift plot settings.
type RenderConfig struct {
	OutputDir string  `yaml:"output_dir"`
	Format    string  `yaml:"format"`
	WidthCm   float64 `yaml:"width_cm"`
	HeightCm  float64 `yaml:"height_cm"`
}

// WatchConfig holds models directory watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := ApplyEnv(&cfg, configDir); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	cfg.expandPaths(configDir)
	return &cfg, nil
}

// Default returns a config with defaults and environment overrides applied, for running
// without a config file. Relative paths resolve against the working directory.
func Default() (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg, "."); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if wd, err := os.Getwd(); err == nil {
		cfg.expandPaths(wd)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Models.RootDir = expandPath(c.Models.RootDir, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Render.OutputDir = expandPath(c.Render.OutputDir, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
