package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the signing identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			_, fp, err := appCtx.Identity.GenerateIdentity(cfg.Passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}
