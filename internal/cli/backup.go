package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot and restore the stores",
	}

	backupCmd.AddCommand(
		newBackupCreateCmd(opts),
		newBackupListCmd(opts),
		newBackupRestoreCmd(opts),
		newBackupDeleteCmd(opts),
		newBackupPruneCmd(opts),
	)

	return backupCmd
}

func newBackupCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Take a snapshot of all store files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Backups().Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d files, %d bytes)\n",
				info.Name, info.Files, info.Size)
			return nil
		},
	}
}

func newBackupListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runBackupList(cmd.OutOrStdout(), a)
		},
	}
}

func runBackupList(w io.Writer, a *app.App) error {
	infos, err := a.Backups().List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No backups yet")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  %s  %d files  %d bytes\n",
			info.Name, info.CreatedAt.Format("2006-01-02 15:04:05"), info.Files, info.Size)
	}
	return nil
}

func newBackupRestoreCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	restoreCmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the live stores with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !yes {
				color.New(color.FgYellow).Fprintln(out, "This overwrites the current stores; changes made after the snapshot are lost.")
				if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Restore %s?", args[0])) {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			if err := a.RestoreBackup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Restored %s\n", args[0])
			return nil
		},
	}
	restoreCmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	return restoreCmd
}

func newBackupDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Backups().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove snapshots beyond the retention limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.Backups().Prune()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d\n", removed)
			return nil
		},
	}
}
