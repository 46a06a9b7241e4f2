package prediction

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/freightrec/core/pricing"
)

// ModelConfidence is the fixed trust placed in any model prediction.
const ModelConfidence = 0.95

// ErrInvalidModel reports inconsistent or unusable model artifacts.
var ErrInvalidModel = errors.New("invalid model")

// Regressor maps a scaled feature vector to a raw price.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// featureCounter is implemented by regressors that know their input width.
type featureCounter interface {
	NumFeatures() int
}

// RegressorFunc adapts a plain function to the Regressor interface.
type RegressorFunc func(x []float64) (float64, error)

// Predict calls f(x).
func (f RegressorFunc) Predict(x []float64) (float64, error) { return f(x) }

// LinearRegressor evaluates intercept + coefficients·x.
type LinearRegressor struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// NumFeatures returns the number of coefficients.
func (l LinearRegressor) NumFeatures() int { return len(l.Coefficients) }

// Predict implements Regressor.
func (l LinearRegressor) Predict(x []float64) (float64, error) {
	if len(x) != len(l.Coefficients) {
		return 0, fmt.Errorf("%w: regressor expects %d features, got %d", ErrInvalidModel, len(l.Coefficients), len(x))
	}
	if len(x) == 0 {
		return l.Intercept, nil
	}
	return l.Intercept + mat.Dot(mat.NewVecDense(len(x), append([]float64(nil), x...)), mat.NewVecDense(len(x), l.Coefficients)), nil
}

// Scaler standardizes features as (x-mean)/scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Validate checks that mean and scale have the same width.
func (s Scaler) Validate() error {
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("%w: scaler mean has %d entries, scale has %d", ErrInvalidModel, len(s.Mean), len(s.Scale))
	}
	return nil
}

// Transform returns the scaled copy of x. A zero scale is treated as 1.
func (s Scaler) Transform(x []float64) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrInvalidModel, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// Metadata describes a trained model.
type Metadata struct {
	ModelType        string             `json:"model_type"`
	TrainingDate     string             `json:"training_date"`
	Features         []string           `json:"features"`
	NSamples         int                `json:"n_samples,omitempty"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
	CoordinateRadius float64            `json:"coordinate_radius,omitempty"`
}

// Model bundles the three persisted artifacts.
type Model struct {
	Regressor Regressor
	Scaler    Scaler
	Metadata  Metadata
}

// Prediction is the output of one inference.
type Prediction struct {
	Raw        float64 `json:"raw"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// Validate checks that metadata, scaler and regressor agree on the feature
// count.
func (m Model) Validate() error {
	if m.Regressor == nil {
		return fmt.Errorf("%w: no regressor", ErrInvalidModel)
	}
	if len(m.Metadata.Features) == 0 {
		return fmt.Errorf("%w: metadata lists no features", ErrInvalidModel)
	}
	if err := m.Scaler.Validate(); err != nil {
		return err
	}
	n := len(m.Metadata.Features)
	if len(m.Scaler.Mean) != n {
		return fmt.Errorf("%w: metadata lists %d features, scaler has %d", ErrInvalidModel, n, len(m.Scaler.Mean))
	}
	if fc, ok := m.Regressor.(featureCounter); ok && fc.NumFeatures() != n {
		return fmt.Errorf("%w: metadata lists %d features, regressor has %d", ErrInvalidModel, n, fc.NumFeatures())
	}
	return nil
}

// Predict builds the feature vector for in, scales it and evaluates the
// regressor. The price is rounded to pricing.Step.
func (m Model) Predict(in Input) (Prediction, error) {
	if err := m.Validate(); err != nil {
		return Prediction{}, err
	}
	x, err := m.Scaler.Transform(in.Vector(m.Metadata.Features))
	if err != nil {
		return Prediction{}, err
	}
	raw, err := m.Regressor.Predict(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("regressor: %w", err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Prediction{}, fmt.Errorf("%w: regressor returned %v", ErrInvalidModel, raw)
	}
	return Prediction{Raw: raw, Price: pricing.RoundToStep(raw), Confidence: ModelConfidence}, nil
}
