package commands

import (
	"encoding/hex"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"treegroup/internal/domain"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <group-hex>",
		Short: "Print the recorded epochs of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseGroupID(args[0])
			if err != nil {
				return err
			}
			recs, err := appCtx.Epochs.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return fmt.Errorf("%w: no epochs recorded for %s", domain.ErrNotFound, id)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EPOCH\tCHANGE\tMEMBERS\tTREE HASH\tCOMMITTED")
			for _, r := range recs {
				change := "create"
				if r.Change != 0 {
					change = r.Change.String()
				}
				th := hex.EncodeToString(r.TreeHash)
				if len(th) > 16 {
					th = th[:16]
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
					r.Epoch, change, r.MemberCount, th, r.CommittedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
