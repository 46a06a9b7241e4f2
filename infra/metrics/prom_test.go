package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/freightrec/core/metrics"
)

func TestPromSink_RecordPrediction(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordPrediction(coremetrics.PredictionEvent{
		Policy: "high_confidence", Method: "geographic_coordinates", Success: true,
		Confidence: 0.69, SimilarRoutes: 6, Duration: 2 * time.Millisecond,
	}))
	require.NoError(t, s.RecordPrediction(coremetrics.PredictionEvent{
		Policy: "base", Success: false, ErrorKind: "data_unavailable",
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.predictions.WithLabelValues("high_confidence", "geographic_coordinates", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.predictions.WithLabelValues("base", "none", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.similarRoutes))
	assert.Equal(t, 1, testutil.CollectAndCount(s.confidence))
	assert.Equal(t, 2, testutil.CollectAndCount(s.duration))
}

func TestPromSink_DatasetAndFeedback(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordDataset(coremetrics.DatasetEvent{Routes: 42}))
	yes := true
	require.NoError(t, s.RecordFeedback(coremetrics.FeedbackEvent{Helpful: &yes}))
	require.NoError(t, s.RecordFeedback(coremetrics.FeedbackEvent{}))

	assert.Equal(t, 42.0, testutil.ToFloat64(s.datasetRoutes))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.feedback.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.feedback.WithLabelValues("unknown")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordDataset(coremetrics.DatasetEvent{Routes: 7}))
	assert.Equal(t, 7.0, testutil.ToFloat64(b.datasetRoutes))
}
