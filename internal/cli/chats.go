package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
	"github.com/dmitrijs2005/chatkeeper/internal/chats"
)

func newChatsCmd(opts *rootOptions) *cobra.Command {
	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage chats",
	}

	chatsCmd.AddCommand(
		newChatsListCmd(opts),
		newChatsCreateCmd(opts),
		newChatsRenameCmd(opts),
		newChatsDeleteCmd(opts),
		newChatsStarCmd(opts),
		newChatsSwitchCmd(opts),
		newChatsShowCmd(opts),
		newChatsClearCmd(opts),
	)

	return chatsCmd
}

func newChatsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChatsList(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}

func runChatsList(ctx context.Context, w io.Writer, a *app.App) error {
	list, err := a.Chats().List(ctx)
	if err != nil {
		return err
	}
	current, err := a.Chats().Current(ctx)
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	for _, c := range list {
		marker := " "
		if c.ID == current.ID {
			marker = "*"
		}
		star := " "
		if c.Starred {
			star = yellow.Sprint("★")
		}
		fmt.Fprintf(w, "%s %s %s  %s  (%d messages, updated %s)\n",
			marker, star, c.Name, c.ID, len(c.Messages), c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func newChatsCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a chat and make it current",
		Long:  "Create a chat and make it current. Without a name the next free \"Chat N\" is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			chat, err := a.Chats().Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", chat.Name, chat.ID)
			return nil
		},
	}
}

func newChatsRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <chat-id> <name>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.Join(args[1:], " ")
			if err := a.Chats().Rename(cmd.Context(), args[0], name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q\n", strings.TrimSpace(name))
			return nil
		},
	}
}

func newChatsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a chat (the last one cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Chats().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newChatsStarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "star <chat-id>",
		Short: "Toggle a chat's star",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			starred, err := a.Chats().ToggleStar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if starred {
				fmt.Fprintln(cmd.OutOrStdout(), "Starred")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Unstarred")
			}
			return nil
		},
	}
}

func newChatsSwitchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <chat-id>",
		Short: "Make a chat current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Chats().SetCurrent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", args[0])
			return nil
		},
	}
}

func newChatsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [chat-id]",
		Short: "Show a chat's messages (current chat when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChatsShow(cmd.Context(), cmd.OutOrStdout(), a, args)
		},
	}
}

func runChatsShow(ctx context.Context, w io.Writer, a *app.App, args []string) error {
	var chat *chats.Chat
	var err error
	if len(args) == 1 {
		chat, err = a.Chats().Get(ctx, args[0])
	} else {
		chat, err = a.Chats().Current(ctx)
	}
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w, "%s", chat.Name)
	fmt.Fprintf(w, "  (%s, %d messages)\n", chat.ID, len(chat.Messages))

	roleColor := map[string]*color.Color{
		chats.RoleUser:      color.New(color.FgGreen),
		chats.RoleAssistant: color.New(color.FgCyan),
		chats.RoleSystem:    color.New(color.FgYellow),
	}
	for _, m := range chat.Messages {
		rc := roleColor[m.Role]
		if rc == nil {
			rc = color.New(color.FgWhite)
		}
		rc.Fprintf(w, "[%s]", m.Role)
		fmt.Fprintf(w, " %s  (%s, %s)\n", m.Content, m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func newChatsClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [chat-id]",
		Short: "Remove all messages from a chat (current chat when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				current, err := a.Chats().Current(ctx)
				if err != nil {
					return err
				}
				id = current.ID
			}

			if err := a.Chats().ClearMessages(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", id)
			return nil
		},
	}
}
