package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/arbiter"
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/recommend"
	"github.com/kilianp07/freightrec/infra/logger"
	"github.com/kilianp07/freightrec/infra/metrics"
	"github.com/kilianp07/freightrec/infra/modelstore"
)

var clock = time.Date(2025, time.July, 10, 9, 0, 0, 0, time.UTC)

// RunScenario serves every request of sc and checks the expectations. It
// returns the number of requests counted by the Prometheus sink.
func RunScenario(t *testing.T, sc *Scenario) float64 {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	ds, err := sc.Dataset()
	require.NoError(t, err)

	var models recommend.ModelLoader = modelstore.Dir(t.TempDir())
	if sc.ModelPrice != nil {
		m, _ := prediction.MockModel(*sc.ModelPrice)
		models = recommend.StaticModel(m)
	}

	policy, err := arbiter.New(arbiter.Config{Policy: sc.Policy}, logger.NopLogger{})
	require.NoError(t, err)
	svc := recommend.New(coredataset.Static(ds), models, policy,
		recommend.WithMetrics(sink),
		recommend.WithClock(func() time.Time { return clock }),
	)

	for _, rd := range sc.Requests {
		t.Run(rd.Name, func(t *testing.T) {
			req, err := rd.Request()
			require.NoError(t, err)
			resp := svc.Recommend(context.Background(), req)
			want := rd.Expected

			assert.Equal(t, want.Success, resp.Success, resp.Error)
			if want.Method != "" {
				assert.Equal(t, want.Method, resp.Method)
			}
			if want.Price != nil {
				require.NotNil(t, resp.RecommendedPrice)
				assert.Equal(t, *want.Price, *resp.RecommendedPrice)
			}
			if want.Confidence != nil {
				assert.InDelta(t, *want.Confidence, resp.Confidence, 1e-9)
			}
			assert.Equal(t, want.ErrorKind, string(resp.ErrorKind))
			if !resp.Success {
				assert.Nil(t, resp.RecommendedPrice)
				assert.NotEmpty(t, resp.Error)
			}
			assert.NotEmpty(t, resp.Explanation)
		})
	}
	return countPredictions(t, reg)
}

func countPredictions(t *testing.T, g prometheus.Gatherer) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "freight_predictions_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
