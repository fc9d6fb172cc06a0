package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/gomantics/reposample/api"
	"github.com/gomantics/reposample/config"
)

// NewServeCommand creates the serve command.
func NewServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the download database over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}

			app := fx.New(
				common(cfg, root.verbose),
				fx.Invoke(api.Run),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}

	addCommonFlags(cmd.Flags())
	cmd.Flags().IntP("port", "p", config.DefaultPort, "port to listen on")

	return cmd
}
