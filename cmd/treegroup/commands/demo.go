package commands

import (
	"crypto/rand"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"treegroup/internal/domain"
	groupsvc "treegroup/internal/services/group"
)

func demoCmd() *cobra.Command {
	var groupHex string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create a group, add three members, exchange a message, remove one",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := appCtx.Signer()
			if err != nil {
				return err
			}
			eng, err := appCtx.NewEngine(signer)
			if err != nil {
				return err
			}
			defer eng.Close()

			var id domain.GroupID
			if groupHex != "" {
				if id, err = domain.ParseGroupID(groupHex); err != nil {
					return err
				}
			} else {
				raw := make([]byte, groupsvc.GroupIDSize)
				if _, err := rand.Read(raw); err != nil {
					return err
				}
				id = domain.GroupID(raw)
			}

			steps, err := eng.RunDemo(cmd.Context(), id)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "group %s\n", id)
			fmt.Fprintln(w, "STEP\tEPOCH\tMEMBERS\tDETAIL")
			for _, s := range steps {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Action, s.Epoch, s.Members, s.Detail)
			}
			if ferr := w.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&groupHex, "group", "", "hex group id (default random)")
	return cmd
}
