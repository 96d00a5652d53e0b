package config

import (
	"path/filepath"
	"slices"
)

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ApplyDefaults fills the optional settings left empty. dataDir anchors the
// default sqlite path.
func ApplyDefaults(cfg *Config, dataDir string) {
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreSQLite
	}
	if cfg.Store.Driver == StoreSQLite && cfg.Store.Path == "" && dataDir != "" {
		cfg.Store.Path = filepath.Join(dataDir, "sessions.db")
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "tgflow"
	}
}
