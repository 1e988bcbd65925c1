package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.DriftRatePerSecond == 0 {
		cfg.Server.DriftRatePerSecond = 2
	}
	if cfg.Server.DriftBurst == 0 {
		cfg.Server.DriftBurst = 4
	}
	if cfg.Models.RootDir == "" {
		cfg.Models.RootDir = "/usr/local/var/diachron/models"
	}
	if cfg.Models.CacheSize == 0 {
		cfg.Models.CacheSize = 8
	}
	if cfg.Models.LoadWorkers == 0 {
		cfg.Models.LoadWorkers = 4
	}
	if cfg.Analysis.DefaultNeighbors == 0 {
		cfg.Analysis.DefaultNeighbors = 10
	}
	if cfg.Analysis.MaxNeighbors == 0 {
		cfg.Analysis.MaxNeighbors = 100
	}
	if cfg.Analysis.AlignWorkers == 0 {
		cfg.Analysis.AlignWorkers = 4
	}
	if cfg.Analysis.MinShared == 0 {
		cfg.Analysis.MinShared = 1
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/diachron/data/diachron.db"
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = "./plots"
	}
	if cfg.Render.Format == "" {
		cfg.Render.Format = "png"
	}
	if cfg.Render.WidthCm == 0 {
		cfg.Render.WidthCm = 20
	}
	if cfg.Render.HeightCm == 0 {
		cfg.Render.HeightCm = 15
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}
