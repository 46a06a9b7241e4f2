package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/factory"
	coremetrics "github.com/kilianp07/freightrec/core/metrics"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordPrediction(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.PredictionEvent{
		Policy:        "high_confidence",
		Method:        "geographic_coordinates",
		Transport:     "http",
		Success:       true,
		Confidence:    0.69,
		SimilarRoutes: 6,
		Duration:      1500 * time.Microsecond,
		Time:          now,
	}
	require.NoError(t, sink.RecordPrediction(ev))

	p := write.NewPointWithMeasurement("freight_prediction").
		AddTag("policy", "high_confidence").
		AddTag("method", "geographic_coordinates").
		AddTag("success", "true").
		AddTag("transport", "http").
		AddField("confidence", 0.69).
		AddField("similar_routes", 6).
		AddField("duration_ms", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	assert.Equal(t, []string{expected}, bodies())
}

func TestInfluxSink_RecordPredictionFailure(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	require.NoError(t, sink.RecordPrediction(coremetrics.PredictionEvent{
		Policy:    "base",
		Method:    "insufficient_data",
		ErrorKind: "insufficient_evidence",
		Time:      now,
	}))
	got := bodies()
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "error_kind=insufficient_evidence")
	assert.Contains(t, got[0], "success=false")
}

func TestInfluxSink_RecordDatasetAndFeedback(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	require.NoError(t, sink.RecordDataset(coremetrics.DatasetEvent{Source: "csv", Routes: 120, Dropped: 3, Time: now}))
	helpful := true
	absErr := 25.0
	require.NoError(t, sink.RecordFeedback(coremetrics.FeedbackEvent{Helpful: &helpful, AbsError: &absErr, Time: now}))

	ds := write.NewPointWithMeasurement("freight_dataset").
		AddTag("source", "csv").
		AddField("routes", 120).
		AddField("dropped", 3).
		SetTime(now)
	fb := write.NewPointWithMeasurement("freight_feedback").
		AddField("count", 1).
		AddField("helpful", true).
		AddField("abs_error", 25.0).
		SetTime(now)
	assert.Equal(t, []string{
		strings.TrimSpace(write.PointToLineProtocol(ds, time.Nanosecond)),
		strings.TrimSpace(write.PointToLineProtocol(fb, time.Nanosecond)),
	}, bodies())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called, "health endpoint not called")
}

func TestInfluxFactory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "influx", Conf: map[string]any{"url": srv.URL}}})
	assert.ErrorContains(t, err, "required")

	conf := map[string]any{"url": srv.URL, "org": "o", "bucket": "b", "health_timeout": "1s"}
	s, err := coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "influx", Conf: conf}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	conf["strict"] = true
	_, err = coremetrics.NewPredictionSink([]factory.ModuleConfig{{Type: "influx", Conf: conf}})
	assert.ErrorContains(t, err, "influx sink")
}
