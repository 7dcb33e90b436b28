// Package config loads subnetctl's TOML configuration, grounded on the
// teacher's daemon configuration layer: a DefaultConfig baseline that Load
// overlays a file on top of.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// APIConfig configures the HTTP membership-change API (spec §9).
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig configures the node-inventory cache.
type StoreConfig struct {
	Path string `toml:"path"`
}

// OptimizeConfig holds budget and candidate-pool settings for the greedy
// search. No command or handler in this module reads them: the CLI takes
// its budget from --budget and the API from the request body.
type OptimizeConfig struct {
	DefaultBudget int    `toml:"default_budget"`
	MaxBudget     int    `toml:"max_budget"`
	PoolSource    string `toml:"pool_source"` // name of the default candidate pool to draw from
}

// MetricsConfig configures the Prometheus exposition endpoint. Only Enabled
// is read: when set, serve mounts /metrics on the API server's own address.
// Host and Port are not used.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Config is the root subnetctl configuration document.
type Config struct {
	API      APIConfig      `toml:"api"`
	Store    StoreConfig    `toml:"store"`
	Optimize OptimizeConfig `toml:"optimize"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// DefaultConfig returns the baseline configuration used when no file is
// present and as the starting point Load overlays a file onto.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Store: StoreConfig{
			Path: "subnetctl.db",
		},
		Optimize: OptimizeConfig{
			DefaultBudget: 1,
			MaxBudget:     10,
			PoolSource:    "default",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9187,
		},
	}
}

// Load reads and decodes a TOML config file at path, overlaying it onto
// DefaultConfig. A missing file is not an error — it yields the default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
