package dataset

import (
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/factory"
	"github.com/kilianp07/freightrec/infra/logger"
)

// init registers the built-in dataset sources.
func init() {
	_ = coredataset.Register("csv", func(conf map[string]any) (coredataset.Source, error) {
		var c CSVConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVSource(c, logger.New("dataset-csv"))
	})

	_ = coredataset.Register("postgres", func(conf map[string]any) (coredataset.Source, error) {
		var c PostgresConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPostgresSource(c, logger.New("dataset-postgres"))
	})

	_ = coredataset.Register("http", func(conf map[string]any) (coredataset.Source, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPSource(c, logger.New("dataset-http"))
	})
}
