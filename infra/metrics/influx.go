package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/infra/logger"
)

// InfluxSink writes recommendation events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.PredictionSink {
	sink := NewInfluxSink(url, token, org, bucket)
	if err := sink.ping(0); err != nil {
		sink.log.Errorf("influx disabled: %v", err)
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// ping checks the server health. A non-positive timeout means 5s.
func (s *InfluxSink) ping(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("health status %s", health.Status)
	}
	return nil
}

// RecordPrediction writes one freight_prediction point.
func (s *InfluxSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("freight_prediction").
		AddTag("policy", ev.Policy).
		AddTag("method", ev.Method).
		AddTag("success", strconv.FormatBool(ev.Success))
	if ev.Transport != "" {
		p = p.AddTag("transport", ev.Transport)
	}
	if ev.ErrorKind != "" {
		p = p.AddTag("error_kind", ev.ErrorKind)
	}
	p = p.AddField("confidence", round3(ev.Confidence)).
		AddField("similar_routes", ev.SimilarRoutes).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDataset writes the size of a freshly loaded dataset.
func (s *InfluxSink) RecordDataset(ev coremetrics.DatasetEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("freight_dataset").
		AddTag("source", ev.Source).
		AddField("routes", ev.Routes).
		AddField("dropped", ev.Dropped).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFeedback writes one freight_feedback point. Unknown values are
// omitted from the field set.
func (s *InfluxSink) RecordFeedback(ev coremetrics.FeedbackEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("freight_feedback").
		AddField("count", 1)
	if ev.Helpful != nil {
		p = p.AddField("helpful", *ev.Helpful)
	}
	if ev.AbsError != nil {
		p = p.AddField("abs_error", round3(*ev.AbsError))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
