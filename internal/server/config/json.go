package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is the DTO for the optional JSON config file.
type JsonConfig struct {
	Addr          string         `json:"addr"`
	DatabaseDSN   string         `json:"database_dsn"`
	SecretKey     string         `json:"secret_key"`
	TokenValidity timex.Duration `json:"token_validity"`
	SeedUser      string         `json:"seed_user"`
	SeedPassword  string         `json:"seed_password"`
}

// parseJson overlays Config with values from the JSON file named by the
// -c/-config flag. Fields missing from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Addr != "" {
		cfg.Addr = jc.Addr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.TokenValidity.Duration != 0 {
		cfg.TokenValidity = time.Duration(jc.TokenValidity.Duration)
	}
	if jc.SeedUser != "" {
		cfg.SeedUser = jc.SeedUser
	}
	if jc.SeedPassword != "" {
		cfg.SeedPassword = jc.SeedPassword
	}
}
