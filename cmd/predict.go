package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightrec/app"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/recommend"
)

var predictOpts struct {
	in     string
	out    string
	origin string
	dest   string
	km     float64
	month  int
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Recommend a price for one route",
	Long: `Recommend a price for one route.

The request is read from --in as a JSON document, or built from --origin,
--dest, --km and --month when --in is empty. The response is written as JSON to --out or to
standard output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := predictRequest()
		if err != nil {
			return err
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			resp := svc.Recommender.Recommend(recommend.WithTransport(ctx, "cli"), req)
			return writeJSON(predictOpts.out, cmd.OutOrStdout(), resp)
		})
	},
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictOpts.in, "in", "", "JSON request file")
	f.StringVarP(&predictOpts.out, "out", "o", "", "output file (default stdout)")
	f.StringVar(&predictOpts.origin, "origin", "", `origin as "lat,lng"`)
	f.StringVar(&predictOpts.dest, "dest", "", `destination as "lat,lng"`)
	f.Float64Var(&predictOpts.km, "km", 0, "total distance in km")
	f.IntVar(&predictOpts.month, "month", 0, "month of the shipment (default current month)")
	rootCmd.AddCommand(predictCmd)
}

func predictRequest() (recommend.Request, error) {
	var req recommend.Request
	if predictOpts.in != "" {
		b, err := os.ReadFile(predictOpts.in)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(b, &req); err != nil {
			return req, fmt.Errorf("decode %s: %w", predictOpts.in, err)
		}
		return req, nil
	}
	if predictOpts.origin == "" || predictOpts.dest == "" {
		return req, fmt.Errorf("either --in or both --origin and --dest are required")
	}
	o, err := model.ParseCoordinate(predictOpts.origin)
	if err != nil {
		return req, fmt.Errorf("--origin: %w", err)
	}
	d, err := model.ParseCoordinate(predictOpts.dest)
	if err != nil {
		return req, fmt.Errorf("--dest: %w", err)
	}
	return recommend.NewRequest(o, d, predictOpts.km, predictOpts.month), nil
}

// writeJSON writes v indented to path, or to stdout when path is empty.
func writeJSON(path string, stdout io.Writer, v any) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
