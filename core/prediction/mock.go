package prediction

// MockRegressor returns a fixed price and records the vectors it received.
type MockRegressor struct {
	Output   float64
	Err      error
	Features int
	Inputs   [][]float64
}

// NumFeatures returns the configured width.
func (m *MockRegressor) NumFeatures() int {
	return m.Features
}

// Predict returns the configured output.
func (m *MockRegressor) Predict(x []float64) (float64, error) {
	cp := make([]float64, len(x))
	copy(cp, x)
	m.Inputs = append(m.Inputs, cp)
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Output, nil
}

// IdentityScaler returns a scaler leaving n features unchanged.
func IdentityScaler(n int) Scaler {
	s := Scaler{Mean: make([]float64, n), Scale: make([]float64, n)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

// MockModel returns a Model with an identity scaler over DefaultFeatures
// that always predicts price.
func MockModel(price float64) (Model, *MockRegressor) {
	reg := &MockRegressor{Output: price, Features: len(DefaultFeatures)}
	return Model{
		Regressor: reg,
		Scaler:    IdentityScaler(len(DefaultFeatures)),
		Metadata:  Metadata{ModelType: "mock", Features: append([]string(nil), DefaultFeatures...)},
	}, reg
}
