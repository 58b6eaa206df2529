package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/app"
	"github.com/dmitrijs2005/chatkeeper/internal/common"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change settings",
	}

	settingsCmd.AddCommand(
		newSettingsGetCmd(opts),
		newSettingsSetCmd(opts),
		newSettingsSetKeyCmd(opts),
		newSettingsCompleteSetupCmd(opts),
	)

	return settingsCmd
}

func newSettingsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [path]",
		Short: "Show settings, or one value by dotted path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSettingsGet(cmd.Context(), cmd.OutOrStdout(), a, args)
		},
	}
}

func runSettingsGet(ctx context.Context, w io.Writer, a *app.App, args []string) error {
	s := a.Settings()

	if len(args) == 1 {
		v, ok := s.Get(args[0])
		if !ok {
			return fmt.Errorf("setting %q: %w", args[0], common.ErrNotFound)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	model := s.Model()
	if model == "" {
		model = "(not set)"
	}
	keyProviders := "(none)"
	if p := s.APIKeyProviders(); len(p) > 0 {
		keyProviders = strings.Join(p, ", ")
	}

	fmt.Fprintf(w, "Provider:   %s\n", s.Provider())
	fmt.Fprintf(w, "Model:      %s\n", model)
	fmt.Fprintf(w, "Endpoint:   %s\n", s.LocalEndpoint())
	fmt.Fprintf(w, "Theme:      %s\n", s.Theme())
	fmt.Fprintf(w, "First run:  %t\n", s.FirstRun())
	fmt.Fprintf(w, "API keys:   %s\n", keyProviders)
	return nil
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set a value by dotted path",
		Long: `Set a value by dotted path. The value is parsed as JSON first, so numbers,
booleans and null keep their type; anything unparsable is stored as a string.

Well-known paths: provider, model, localEndpoint, ui.theme.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var value any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}

			if err := a.Settings().Set(cmd.Context(), args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}
}

func newSettingsSetKeyCmd(opts *rootOptions) *cobra.Command {
	var remove bool

	setKeyCmd := &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store an API key for a provider (prompted, no echo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			provider := args[0]

			if remove {
				if err := a.Settings().DeleteAPIKey(ctx, provider); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed key for %s\n", provider)
				return nil
			}

			secret, err := getSecret(out, fmt.Sprintf("API key for %s", provider))
			if err != nil {
				return err
			}
			defer common.WipeByteArray(secret)
			if len(secret) == 0 {
				return fmt.Errorf("api key: %w", common.ErrInvalidName)
			}

			if err := a.Settings().SetAPIKey(ctx, provider, string(secret)); err != nil {
				return err
			}
			fmt.Fprintf(out, "Stored key for %s\n", provider)
			return nil
		},
	}
	setKeyCmd.Flags().BoolVar(&remove, "delete", false, "remove the stored key instead")

	return setKeyCmd
}

func newSettingsCompleteSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-setup",
		Short: "Mark the first-run wizard as done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Settings().CompleteSetup(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Setup complete")
			return nil
		},
	}
}
