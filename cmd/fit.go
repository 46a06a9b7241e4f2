package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightrec/app"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the linear model on the dataset and save its artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Trainer.Train(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "model saved to %s: %d samples, r2 %.3f, rmse %.1f, mae %.1f\n",
				svc.Models, rep.Samples, rep.R2, rep.RMSE, rep.MAE)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)
}
