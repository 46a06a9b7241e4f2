package evaluate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/prediction"
)

var (
	now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	dep = time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
)

func mustRoute(t *testing.T, o, d model.Coordinate, km, price float64) model.HistoricalRoute {
	t.Helper()
	r, err := model.NewHistoricalRoute(o, d, km, price, dep)
	require.NoError(t, err)
	return r
}

// Six identical corridor routes and one isolated long haul.
func corridor(t *testing.T) model.Dataset {
	o := model.Coordinate{Lat: -25.5163, Lng: -54.5854}
	d := model.Coordinate{Lat: -23.5505, Lng: -46.6333}
	var ds model.Dataset
	for i := 0; i < 6; i++ {
		ds = append(ds, mustRoute(t, o, d, 500, 1000))
	}
	ds = append(ds, mustRoute(t, model.Coordinate{Lat: 10, Lng: 10}, model.Coordinate{Lat: 20, Lng: 20}, 3000, 7000))
	return ds
}

func TestRun_LeaveOneOut(t *testing.T) {
	p, err := arbiter.New(arbiter.Config{Policy: arbiter.PolicyHighConfidence}, nil)
	require.NoError(t, err)
	m, _ := prediction.MockModel(1234)

	rep, err := Run(context.Background(), p, corridor(t), m, Options{Scenarios: -1}, now)
	require.NoError(t, err)

	assert.Equal(t, arbiter.PolicyHighConfidence, rep.Policy)
	assert.Equal(t, 7, rep.TotalScenarios)
	assert.Equal(t, 6, rep.Predicted)
	assert.Equal(t, 6, rep.AcceptablePredictions)
	assert.Equal(t, 85.7, rep.AccuracyRate)
	assert.Zero(t, rep.MeanAbsoluteError)
	assert.True(t, rep.Acceptable)
	assert.Equal(t, map[string]int{
		string(arbiter.MethodGeographic):       6,
		string(arbiter.MethodInsufficientData): 1,
	}, rep.Methods)

	last := rep.Scenarios[6]
	assert.Nil(t, last.Prediction)
	assert.False(t, last.IsAcceptable)
	assert.Equal(t, 7000.0, last.HistoricalPrice)
	assert.Equal(t, 1, rep.Scenarios[0].Scenario)
	assert.Equal(t, 1000.0, *rep.Scenarios[0].Prediction)
}

func TestRun_ScenarioErrorsAreRecorded(t *testing.T) {
	p, err := arbiter.New(arbiter.Config{Policy: arbiter.PolicyBase}, nil)
	require.NoError(t, err)

	rep, err := Run(context.Background(), p, corridor(t), nil, Options{Scenarios: 3}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.TotalScenarios)
	assert.Equal(t, 3, rep.Methods["error"])
	assert.NotEmpty(t, rep.Scenarios[0].Error)
	assert.False(t, rep.Acceptable)
}

func TestRun_NonPositiveHistoricalPrice(t *testing.T) {
	p, err := arbiter.New(arbiter.Config{Policy: arbiter.PolicyHighConfidence}, nil)
	require.NoError(t, err)
	m, _ := prediction.MockModel(1234)
	ds := corridor(t)
	ds[0].Price = 0

	rep, err := Run(context.Background(), p, ds, m, Options{Scenarios: -1}, now)
	require.NoError(t, err)
	assert.Equal(t, 7, rep.TotalScenarios)
	assert.Equal(t, 1, rep.Methods["error"])
	assert.Contains(t, rep.Scenarios[0].Error, "not positive")
	assert.Nil(t, rep.Scenarios[0].PercentageDiff)
	for _, sc := range rep.Scenarios[1:] {
		if sc.PercentageDiff != nil {
			assert.False(t, math.IsInf(*sc.PercentageDiff, 0))
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	p, err := arbiter.New(arbiter.Config{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, p, corridor(t), nil, Options{}, now)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyDataset(t *testing.T) {
	p, err := arbiter.New(arbiter.Config{}, nil)
	require.NoError(t, err)
	rep, err := Run(context.Background(), p, nil, nil, Options{}, now)
	require.NoError(t, err)
	assert.Zero(t, rep.TotalScenarios)
	assert.NotNil(t, rep.Scenarios)
	assert.False(t, rep.Acceptable)
	assert.Equal(t, DefaultTolerancePct, rep.TolerancePct)
}

func TestSample(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, sample(3, 0, 1))
	assert.Equal(t, []int{0, 1, 2}, sample(3, 5, 1))

	a := sample(100, 10, 7)
	b := sample(100, 10, 7)
	assert.Equal(t, a, b)
	require.Len(t, a, 10)
	seen := map[int]bool{}
	for i, v := range a {
		assert.False(t, seen[v])
		seen[v] = true
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 100)
		if i > 0 {
			assert.Less(t, a[i-1], v)
		}
	}
}
