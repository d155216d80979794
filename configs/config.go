// Package config loads the application configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects and parameterizes the index store backend.
type DatabaseConfig struct {
	Type string `yaml:"type"` // "sqlite" or "mysql"
	Path string `yaml:"path"` // sqlite database file
	DSN  string `yaml:"dsn"`  // mysql DSN, ignored for sqlite
}

// RemoteConfig points at the optional fingerprint service.
type RemoteConfig struct {
	BaseURL    string `yaml:"base_url"`
	UploadPath string `yaml:"upload_path"`
	SearchPath string `yaml:"search_path"`
}

// EngineConfig carries the tunables the two source variants disagree on.
// The defaults are the canonical values.
type EngineConfig struct {
	PeakThreshold float64 `yaml:"peak_threshold"`
	BandLow       int     `yaml:"band_low"`
	BandHigh      int     `yaml:"band_high"`
	MatchMin      int     `yaml:"match_min"`
	EdgeProfile   string  `yaml:"edge_profile"` // "laplacian" (canonical) or "sobel"
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Engine   EngineConfig   `yaml:"engine"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "freq_info.data.db",
		},
		Remote: RemoteConfig{
			BaseURL:    "http://liveplustest.sinaapp.com",
			UploadPath: "/music/uploadSongFreqData.php",
			SearchPath: "/music/findSongByFreqData.php",
		},
		Engine: EngineConfig{
			PeakThreshold: 0.12,
			BandLow:       20,
			BandHigh:      400,
			MatchMin:      2,
			EdgeProfile:   "laplacian",
		},
	}
}

// LoadConfig reads the YAML file at path. Missing fields keep their
// defaults; a missing file is an error so a typo'd path is not silently
// replaced by defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Engine.MatchMin < 1 {
		return nil, fmt.Errorf("engine.match_min must be at least 1, got %d", cfg.Engine.MatchMin)
	}
	switch cfg.Engine.EdgeProfile {
	case "laplacian", "sobel":
	default:
		return nil, fmt.Errorf("unknown engine.edge_profile %q", cfg.Engine.EdgeProfile)
	}

	return &cfg, nil
}
