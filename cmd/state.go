package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightrec/app"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the model and dataset state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			return writeJSON("", cmd.OutOrStdout(), svc.Recommender.State(ctx))
		})
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
