package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/freightrec/core/factory"
	coremetrics "github.com/kilianp07/freightrec/core/metrics"
)

// InfluxConfig configures the "influx" sink. Unless Strict is set, an
// unreachable server degrades to a no-op sink instead of failing startup.
type InfluxConfig struct {
	URL           string        `json:"url"`
	Token         string        `json:"token"`
	Org           string        `json:"org"`
	Bucket        string        `json:"bucket"`
	Strict        bool          `json:"strict"`
	HealthTimeout time.Duration `json:"health_timeout"`
}

// Validate checks the required connection settings.
func (c InfluxConfig) Validate() error {
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx sink: url, org and bucket are required")
	}
	return nil
}

func newInfluxFromConf(conf map[string]any) (coremetrics.PredictionSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Strict {
		sink := NewInfluxSink(c.URL, c.Token, c.Org, c.Bucket)
		if err := sink.ping(c.HealthTimeout); err != nil {
			sink.client.Close()
			return nil, fmt.Errorf("influx sink: %w", err)
		}
		return sink, nil
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	_ = coremetrics.RegisterPredictionSink("nop", func(map[string]any) (coremetrics.PredictionSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterPredictionSink("prometheus", func(map[string]any) (coremetrics.PredictionSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})
	_ = coremetrics.RegisterPredictionSink("influx", newInfluxFromConf)
}
