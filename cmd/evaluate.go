package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightrec/app"
	"github.com/kilianp07/freightrec/core/evaluate"
	"github.com/kilianp07/freightrec/pkg/export"
)

var evalOpts struct {
	format    string
	out       string
	scenarios int
	tolerance float64
	seed      uint64
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Replay historical routes through the policy and report accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch evalOpts.format {
		case "json", "csv":
		default:
			return fmt.Errorf("unknown format %q", evalOpts.format)
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Recommender.Evaluate(ctx, evaluate.Options{
				Scenarios:    evalOpts.scenarios,
				TolerancePct: evalOpts.tolerance,
				Seed:         evalOpts.seed,
			})
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if evalOpts.out != "" {
				f, err := os.Create(evalOpts.out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := export.Write(w, evalOpts.format, rep); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "%d/%d acceptable (%.1f%%)\n",
				rep.AcceptablePredictions, rep.TotalScenarios, rep.AccuracyRate)
			return err
		})
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalOpts.format, "format", "json", "output format: json or csv")
	f.StringVarP(&evalOpts.out, "out", "o", "", "output file (default stdout)")
	f.IntVar(&evalOpts.scenarios, "scenarios", evaluate.DefaultScenarios, "number of routes to replay, negative for all")
	f.Float64Var(&evalOpts.tolerance, "tolerance", evaluate.DefaultTolerancePct, "acceptable error in percent")
	f.Uint64Var(&evalOpts.seed, "seed", 0, "sampling seed")
	rootCmd.AddCommand(evaluateCmd)
}
