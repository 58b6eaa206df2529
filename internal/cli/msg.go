package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
)

func newMsgCmd(opts *rootOptions) *cobra.Command {
	msgCmd := &cobra.Command{
		Use:   "msg",
		Short: "Add or remove messages",
	}

	msgCmd.AddCommand(newMsgAddCmd(opts), newMsgRmCmd(opts))

	return msgCmd
}

// targetChat resolves the --chat flag, falling back to the current chat.
func targetChat(ctx context.Context, a *app.App, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	current, err := a.Chats().Current(ctx)
	if err != nil {
		return "", err
	}
	return current.ID, nil
}

func newMsgAddCmd(opts *rootOptions) *cobra.Command {
	var chatID string

	addCmd := &cobra.Command{
		Use:   "add <role> <text>",
		Short: "Append a message (roles: user, assistant, system)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id, err := targetChat(ctx, a, chatID)
			if err != nil {
				return err
			}

			m, err := a.Chats().AppendMessage(ctx, id, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", m.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&chatID, "chat", "", "chat id (default: current chat)")

	return addCmd
}

func newMsgRmCmd(opts *rootOptions) *cobra.Command {
	var chatID string

	rmCmd := &cobra.Command{
		Use:   "rm <message-id>...",
		Short: "Remove messages by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id, err := targetChat(ctx, a, chatID)
			if err != nil {
				return err
			}

			removed, err := a.Chats().DeleteMessages(ctx, id, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d\n", removed, len(args))
			return nil
		},
	}
	rmCmd.Flags().StringVar(&chatID, "chat", "", "chat id (default: current chat)")

	return rmCmd
}
