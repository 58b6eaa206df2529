// Package cli implements the chatkeeper command tree: inspection and
// maintenance of the encrypted stores from a terminal. Every command opens
// the full stack (lock, key, stores, migrations) for the duration of one
// invocation and closes it before exiting.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
	"github.com/dmitrijs2005/chatkeeper/internal/backup"
	"github.com/dmitrijs2005/chatkeeper/internal/config"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// rootOptions carries the persistent flag values. One instance per root
// command keeps parallel tests from sharing flag state.
type rootOptions struct {
	baseDir    string
	configPath string
	retention  int
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "chatkeeper",
		Short: "Encrypted local store for chats, agents and settings",
		Long: `ChatKeeper owns the encrypted documents a desktop chat client keeps on
disk: settings, chats and agent personas, plus timestamped backups of all
three. Everything stays local; store files are encrypted with a
per-installation key and rewritten atomically on every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.baseDir, "base-dir", "", "base directory (default: platform user config dir)")
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to JSON config file")
	pf.IntVar(&opts.retention, "retention", backup.DefaultRetention, "how many backups to keep, 0 keeps all")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newChatsCmd(opts),
		newMsgCmd(opts),
		newAgentsCmd(opts),
		newSettingsCmd(opts),
		newBackupCmd(opts),
		newKeyCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command, printing any failure once to stderr.
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// resolveConfig layers cobra flag values over everything config already
// merged (defaults, JSON file, environment). The config file itself was
// picked up from os.Args before cobra ran.
func (o *rootOptions) resolveConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	if o.baseDir != "" {
		cfg.BaseDir = o.baseDir
	}
	if cmd.Root().PersistentFlags().Changed("retention") {
		cfg.BackupRetention = o.retention
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg
}

// openApp brings the stack up for one command invocation. Logs go to
// stderr so command output on stdout stays clean.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	cfg := opts.resolveConfig(cmd)

	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logging.NewSlogTextLogger(cmd.ErrOrStderr(), lvl)

	return app.New(cmd.Context(), cfg, log)
}
