package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/chatkeeper/internal/backup"
	"github.com/dmitrijs2005/chatkeeper/internal/common"
)

// Config holds runtime settings for the ChatKeeper CLI.
//
// Fields:
//   - BaseDir: directory holding the encrypted stores, the key file and backups.
//   - BackupRetention: how many snapshots to keep; 0 disables pruning.
//   - BackupInterval: how often the scheduler snapshots; 0 disables the scheduler.
//   - LogLevel: minimum level for the text logger (debug, info, warn, error).
type Config struct {
	BaseDir         string
	BackupRetention int
	BackupInterval  time.Duration
	LogLevel        string
}

// LoadDefaults populates c with sensible defaults. The base directory lives
// under the platform user config dir, falling back to the working directory
// when that cannot be resolved.
func (c *Config) LoadDefaults() {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	c.BaseDir = filepath.Join(dir, common.AppDirName)
	c.BackupRetention = backup.DefaultRetention
	c.BackupInterval = backup.DefaultInterval
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and the environment. Later sources take precedence over
// earlier ones. Cobra flags are overlaid afterwards by the CLI layer.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}
