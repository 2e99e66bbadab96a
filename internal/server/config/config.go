// Package config handles configuration for the dev server: defaults, JSON
// overlay, then command-line flags.
package config

import "time"

// Config holds runtime settings for the dev server.
//
// DatabaseDSN empty means the in-memory store; a Postgres DSN selects the
// persistent store. SecretKey signs JWTs (HS256); the default is insecure
// and exists for local development only.
type Config struct {
	Addr          string
	DatabaseDSN   string
	SecretKey     string
	TokenValidity time.Duration
	SeedUser      string
	SeedPassword  string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.TokenValidity = 60 * time.Minute
	c.SeedUser = "admin"
	c.SeedPassword = "admin"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
