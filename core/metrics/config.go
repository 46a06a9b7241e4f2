package metrics

import (
	"fmt"

	"github.com/kilianp07/freightrec/core/factory"
)

// Config lists the prediction sinks to fan events out to. PrometheusAddr
// exposes /metrics when set, e.g. ":9100".
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// Validate checks that every sink names a type. Whether the type is
// registered is only known once the infra sinks are linked in, so that is
// left to NewPredictionSink.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
