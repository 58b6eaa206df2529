package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Inspect the encryption key",
	}

	keyCmd.AddCommand(newKeyShowCmd(opts))

	return keyCmd
}

// The secret itself is never printed, only its fingerprint.
func newKeyShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show key fingerprint and file state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Fingerprint:  %s\n", a.KeyFingerprint())
			fmt.Fprintf(w, "Key file:     %s\n", filepath.Join(a.BaseDir(), common.KeyFileName))
			if a.KeyPersisted() {
				color.New(color.FgGreen).Fprintln(w, "State:        per-installation key file")
			} else {
				color.New(color.FgYellow).Fprintln(w, "State:        legacy fallback secret, key file missing")
			}
			return nil
		},
	}
}
