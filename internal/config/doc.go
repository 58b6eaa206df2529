// Package config loads runtime configuration for the ChatKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c, -config or --config.
//  3. Environment variables (see parseEnv), prefix CHATKEEPER_.
//  4. Cobra persistent flags, overlaid by the CLI layer after LoadConfig.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the backup interval, so values can
// be either strings like "24h" or integer nanoseconds:
//
//	{
//	  "base_dir": "/home/user/.config/chatkeeper",
//	  "backup_retention": 7,
//	  "backup_interval": "24h",
//	  "log_level": "info"
//	}
//
// Environment variables
//
//	CHATKEEPER_BASE_DIR          base directory for stores and backups
//	CHATKEEPER_BACKUP_RETENTION  how many snapshots to keep (0 disables pruning)
//	CHATKEEPER_BACKUP_INTERVAL   Go duration string, e.g. "12h" (0 disables the scheduler)
//	CHATKEEPER_LOG_LEVEL         debug, info, warn or error
//
// Primary API
//
//   - type Config                     — holds BaseDir, BackupRetention, BackupInterval, LogLevel
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then environment
//   - func (*Config) LoadDefaults()   — sets sensible defaults
package config
