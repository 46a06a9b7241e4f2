package prediction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/model"
)

func TestFitLinear_RecoversLinearPrice(t *testing.T) {
	var ds model.Dataset
	for i := 0; i < 40; i++ {
		km := 100 + float64(i)*25
		month := i%12 + 1
		dep := time.Date(2023+i%2, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		r, err := model.NewHistoricalRoute(
			model.Coordinate{Lat: -25 + float64(i%5)*0.1, Lng: -54},
			model.Coordinate{Lat: -23, Lng: -46 - float64(i%3)*0.1},
			km, 500+4*km, dep)
		require.NoError(t, err)
		ds = append(ds, r)
	}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m, report, err := FitLinear(ds, []string{"KM", "Mes"}, now)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, 40, report.Samples)
	assert.InDelta(t, 1, report.R2, 1e-6)
	assert.Less(t, report.MAE, 0.5)
	assert.Equal(t, "linear", m.Metadata.ModelType)
	assert.Equal(t, "2025-01-02T03:04:05Z", m.Metadata.TrainingDate)
	assert.Contains(t, m.Metadata.Metrics, "r2")

	p, err := m.Predict(Input{DistanceKm: 600, Month: 3})
	require.NoError(t, err)
	assert.InDelta(t, 2900, p.Raw, 1)
	assert.Equal(t, 2900.0, p.Price)
}

func TestFitLinear_TooFewRoutes(t *testing.T) {
	_, _, err := FitLinear(nil, nil, time.Now())
	assert.Error(t, err)
}
