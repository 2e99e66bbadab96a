// Package config loads runtime configuration for the field client.
//
// Sources and precedence: built-in defaults, then an optional JSON file
// (selected with -c/-config), then command-line flags. Later sources
// override earlier ones.
package config

import "time"

// Config holds runtime settings for the field client CLI.
type Config struct {
	// ServerBaseURL is the base URL of the sync server API.
	ServerBaseURL string
	// DatabaseDSN is the SQLite DSN of the local encrypted database.
	DatabaseDSN string
	// KeyFile is where the derived encryption key is persisted.
	KeyFile string
	// OnlineCheckInterval is how often the client probes server reachability.
	OnlineCheckInterval time.Duration
	// HTTPTimeout bounds each API request.
	HTTPTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "fieldsync.db"
	c.KeyFile = "fieldsync.key"
	c.OnlineCheckInterval = 3 * time.Second
	c.HTTPTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
