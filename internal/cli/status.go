package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store health at a glance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runStatus(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}

func runStatus(ctx context.Context, w io.Writer, a *app.App) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprintln(w, "ChatKeeper")
	fmt.Fprintf(w, "  Base dir:  %s\n", a.BaseDir())

	if a.KeyPersisted() {
		green.Fprint(w, "  Key:       ")
		fmt.Fprintf(w, "%s (key file)\n", a.KeyFingerprint())
	} else {
		yellow.Fprint(w, "  Key:       ")
		fmt.Fprintf(w, "%s (legacy fallback, no key file)\n", a.KeyFingerprint())
	}

	fmt.Fprintf(w, "  Schemas:   settings v%d, chats v%d, agents v%d\n",
		a.Settings().SchemaVersion(), a.Chats().SchemaVersion(), a.Agents().SchemaVersion())

	chatList, err := a.Chats().List(ctx)
	if err != nil {
		return err
	}
	agentList, err := a.Agents().List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Chats:     %d\n", len(chatList))
	fmt.Fprintf(w, "  Agents:    %d\n", len(agentList))

	backups, err := a.Backups().List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(w, "  Backups:   none")
	} else {
		fmt.Fprintf(w, "  Backups:   %d, latest %s\n",
			len(backups), backups[0].CreatedAt.Format(time.RFC3339))
	}
	return nil
}
