package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func credentialCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the stored Gemini API key",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <api-key>",
			Short: "Store an API key for later runs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				core, _, err := g.core(cmd.Context())
				if err != nil {
					return err
				}
				defer core.Close()
				if err := core.Credentials.Save(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved (fingerprint %s)\n", core.Credentials.Current().Fingerprint())
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the API key comes from",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				core, _, err := g.core(cmd.Context())
				if err != nil {
					return err
				}
				defer core.Close()
				cur := core.Credentials.Current()
				if cur.Empty() {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "no API key configured")
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "source=%s fingerprint=%s\n", core.Credentials.Source(), cur.Fingerprint())
				return err
			},
		},
	)
	return cmd
}
