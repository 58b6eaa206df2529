package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agent personas",
	}

	agentsCmd.AddCommand(
		newAgentsListCmd(opts),
		newAgentsCreateCmd(opts),
		newAgentsDeleteCmd(opts),
		newAgentsUseCmd(opts),
	)

	return agentsCmd
}

func newAgentsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runAgentsList(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}

func runAgentsList(ctx context.Context, w io.Writer, a *app.App) error {
	list, err := a.Agents().List(ctx)
	if err != nil {
		return err
	}
	current, err := a.Agents().Current(ctx)
	if err != nil {
		return err
	}

	faint := color.New(color.Faint)
	for _, ag := range list {
		marker := " "
		if ag.ID == current.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s %s  %s", marker, ag.Emoji, ag.Name, ag.ID)
		if ag.Builtin {
			faint.Fprint(w, "  (builtin)")
		}
		fmt.Fprintln(w)
		if ag.Description != "" {
			fmt.Fprintf(w, "      %s\n", ag.Description)
		}
	}
	return nil
}

func newAgentsCreateCmd(opts *rootOptions) *cobra.Command {
	var emoji, description string

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a custom persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			agent, err := a.Agents().Create(cmd.Context(), emoji, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", agent.Emoji, agent.Name, agent.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&emoji, "emoji", "🤖", "emoji shown next to the persona")
	createCmd.Flags().StringVar(&description, "desc", "", "one-line description")

	return createCmd
}

func newAgentsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Delete a custom persona (builtins are read-only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Agents().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newAgentsUseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use <agent-id>",
		Short: "Select the active persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Agents().SetCurrent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Now using %s\n", args[0])
			return nil
		},
	}
}
