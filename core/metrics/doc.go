// Package metrics defines the sink interfaces used to observe price
// recommendations. Sinks like the Prometheus and InfluxDB implementations in
// infra/metrics record each prediction outcome and can be combined with
// NewMultiSink. NewPredictionSink returns a MultiSink automatically when
// several sinks are configured.
package metrics
