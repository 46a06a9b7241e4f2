package prediction

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightrec/core/model"
)

// ridge keeps the normal equations solvable when a feature is constant.
const ridge = 1e-6

// FitReport summarizes the in-sample quality of a fitted model.
type FitReport struct {
	Samples int     `json:"n_samples"`
	R2      float64 `json:"r2"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
}

// Metrics returns the report as the metadata metrics map.
func (r FitReport) Metrics() map[string]float64 {
	return map[string]float64{"r2": r.R2, "rmse": r.RMSE, "mae": r.MAE}
}

// FitLinear fits a standard-scaled least squares model of price over the
// given features. A nil features slice selects DefaultFeatures.
func FitLinear(routes model.Dataset, features []string, now time.Time) (Model, FitReport, error) {
	if len(features) == 0 {
		features = DefaultFeatures
	}
	n, p := len(routes), len(features)
	if n <= p {
		return Model{}, FitReport{}, fmt.Errorf("fit: need more than %d routes, got %d", p, n)
	}

	raw := mat.NewDense(n, p, nil)
	y := make([]float64, n)
	for i, r := range routes {
		raw.SetRow(i, RouteInput(r).Vector(features))
		y[i] = r.Price
	}

	scaler := Scaler{Mean: make([]float64, p), Scale: make([]float64, p)}
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, raw)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		scaler.Mean[j], scaler.Scale[j] = mean, std
	}

	// Design matrix with a leading intercept column.
	x := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		scaled, err := scaler.Transform(raw.RawRowView(i))
		if err != nil {
			return Model{}, FitReport{}, err
		}
		x.Set(i, 0, 1)
		for j, v := range scaled {
			x.Set(i, j+1, v)
		}
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 1; j <= p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+ridge*float64(n))
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(n, y))

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return Model{}, FitReport{}, fmt.Errorf("fit: solve normal equations: %w", err)
	}

	reg := LinearRegressor{Intercept: beta.AtVec(0), Coefficients: make([]float64, p)}
	for j := 0; j < p; j++ {
		reg.Coefficients[j] = beta.AtVec(j + 1)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	est := fitted.RawVector().Data
	report := FitReport{Samples: n, R2: stat.RSquaredFrom(est, y, nil)}
	var se, ae float64
	for i := range y {
		d := est[i] - y[i]
		se += d * d
		ae += math.Abs(d)
	}
	report.RMSE = math.Sqrt(se / float64(n))
	report.MAE = ae / float64(n)

	m := Model{
		Regressor: reg,
		Scaler:    scaler,
		Metadata: Metadata{
			ModelType:    "linear",
			TrainingDate: now.UTC().Format(time.RFC3339),
			Features:     append([]string(nil), features...),
			NSamples:     n,
			Metrics:      report.Metrics(),
		},
	}
	return m, report, nil
}
