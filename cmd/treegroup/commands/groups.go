package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List groups that have recorded epochs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := appCtx.Epochs.Groups(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				latest, err := appCtx.Epochs.MaxEpoch(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tepoch %d\n", id, latest)
			}
			return nil
		},
	}
}
