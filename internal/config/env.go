package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names. All share the CHATKEEPER_ prefix so setting
// them never collides with other tools.
const (
	envBaseDir         = "CHATKEEPER_BASE_DIR"
	envBackupRetention = "CHATKEEPER_BACKUP_RETENTION"
	envBackupInterval  = "CHATKEEPER_BACKUP_INTERVAL"
	envLogLevel        = "CHATKEEPER_LOG_LEVEL"
)

// parseEnv overlays cfg with values from the environment. Unset or empty
// variables leave cfg untouched; unparsable numeric values are ignored
// rather than failing startup.
func parseEnv(cfg *Config) {
	if v := os.Getenv(envBaseDir); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv(envBackupRetention); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackupRetention = n
		}
	}
	if v := os.Getenv(envBackupInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BackupInterval = d
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
