package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/freightrec/core/metrics"
)

// PromSink records recommendation outcomes in Prometheus metrics.
type PromSink struct {
	predictions   *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
	duration      *prometheus.HistogramVec
	similarRoutes prometheus.Gauge
	datasetRoutes prometheus.Gauge
	feedback      *prometheus.CounterVec
}

// NewPromSink registers recommendation metrics on the default Prometheus
// registerer. The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	predictions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_predictions_total",
		Help: "Total number of price recommendation requests",
	}, []string{"policy", "method", "success"}))
	if err != nil {
		return nil, err
	}
	confidence, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freight_prediction_confidence",
		Help:    "Confidence of successful recommendations",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	}, []string{"method"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freight_prediction_duration_seconds",
		Help:    "Time spent computing a recommendation",
		Buckets: prometheus.DefBuckets,
	}, []string{"policy"}))
	if err != nil {
		return nil, err
	}
	similar, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freight_similar_routes",
		Help: "Number of similar historical routes found for the last request",
	}))
	if err != nil {
		return nil, err
	}
	dataset, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freight_dataset_routes",
		Help: "Number of historical routes in the loaded dataset",
	}))
	if err != nil {
		return nil, err
	}
	feedback, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_feedback_total",
		Help: "User feedback received on recommendations",
	}, []string{"helpful"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		predictions:   predictions,
		confidence:    confidence,
		duration:      duration,
		similarRoutes: similar,
		datasetRoutes: dataset,
		feedback:      feedback,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPrediction updates the counters and histograms for one request.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	method := ev.Method
	if method == "" {
		method = "none"
	}
	s.predictions.WithLabelValues(ev.Policy, method, strconv.FormatBool(ev.Success)).Inc()
	if ev.Success {
		s.confidence.WithLabelValues(method).Observe(ev.Confidence)
	}
	s.duration.WithLabelValues(ev.Policy).Observe(ev.Duration.Seconds())
	s.similarRoutes.Set(float64(ev.SimilarRoutes))
	return nil
}

// RecordDataset sets the dataset size gauge.
func (s *PromSink) RecordDataset(ev coremetrics.DatasetEvent) error {
	s.datasetRoutes.Set(float64(ev.Routes))
	return nil
}

// RecordFeedback counts feedback by helpfulness.
func (s *PromSink) RecordFeedback(ev coremetrics.FeedbackEvent) error {
	label := "unknown"
	if ev.Helpful != nil {
		label = strconv.FormatBool(*ev.Helpful)
	}
	s.feedback.WithLabelValues(label).Inc()
	return nil
}
