package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightrec/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP and MQTT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			return svc.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
