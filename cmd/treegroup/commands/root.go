package commands

import (
	"time"

	"github.com/spf13/cobra"

	"treegroup/internal/app"
)

var (
	cfg    app.Config
	appCtx *app.App
)

func Execute() error {
	root := &cobra.Command{
		Use:          "treegroup",
		Short:        "Tree-based group key agreement engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&cfg.Home, "home", "", "data dir (default $"+app.EnvHome+" or ~/.treegroup)")
	f.StringVarP(&cfg.Passphrase, "passphrase", "p", "", "passphrase protecting the signing identity")
	f.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error (default $"+app.EnvLogLevel+" or info)")
	f.StringVar(&cfg.LogFormat, "log-format", "text", "text or json")
	f.IntVar(&cfg.StoreCapacity, "capacity", 0, "maximum live groups held in memory")
	f.DurationVar(&cfg.RecordTimeout, "record-timeout", 5*time.Second, "timeout for writing one epoch record")

	root.AddCommand(initCmd(), fingerprintCmd(), demoCmd(), groupsCmd(), historyCmd())
	return root.Execute()
}
