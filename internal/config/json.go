package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chatkeeper/internal/flagx"
	"github.com/dmitrijs2005/chatkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the backup interval either
// as a string like "24h" or as integer nanoseconds. Pointer fields tell an
// absent key apart from an explicit zero, since 0 is meaningful for both the
// retention (keep everything) and the interval (scheduler off).
type JsonConfig struct {
	BaseDir         string          `json:"base_dir"`
	BackupRetention *int            `json:"backup_retention"`
	BackupInterval  *timex.Duration `json:"backup_interval"`
	LogLevel        string          `json:"log_level"`
}

// parseJson overlays cfg with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c, -config or --config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only keys present in the file override cfg; everything else keeps its
// earlier value. Panics on read or unmarshal errors, since running against a
// half-applied explicit config file is worse than not starting.
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

	if jc.BaseDir != "" {
		cfg.BaseDir = jc.BaseDir
	}
	if jc.BackupRetention != nil {
		cfg.BackupRetention = *jc.BackupRetention
	}
	if jc.BackupInterval != nil {
		cfg.BackupInterval = jc.BackupInterval.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
