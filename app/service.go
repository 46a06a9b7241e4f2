// Package app wires the configured dataset, model, policy and sinks into a
// recommendation service and runs its transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apirecommend "github.com/kilianp07/freightrec/api/recommend"
	"github.com/kilianp07/freightrec/config"
	"github.com/kilianp07/freightrec/core/arbiter"
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/explain"
	coremetrics "github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/predictionlog"
	"github.com/kilianp07/freightrec/core/recommend"
	_ "github.com/kilianp07/freightrec/infra/dataset"
	"github.com/kilianp07/freightrec/infra/logger"
	"github.com/kilianp07/freightrec/infra/metrics"
	"github.com/kilianp07/freightrec/infra/modelstore"
	inframon "github.com/kilianp07/freightrec/infra/monitoring"
	"github.com/kilianp07/freightrec/infra/mqtt"
)

// Service holds the wired components.
type Service struct {
	Config      *config.Config
	Recommender *recommend.Service
	Trainer     *Trainer
	Source      coredataset.Source
	Models      modelstore.Dir

	sink  coremetrics.PredictionSink
	store predictionlog.Store
	log   logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if !logger.SetLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	monitoring.Init(mon)

	sink, err := coremetrics.NewPredictionSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	raw, err := coredataset.New(cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", cfg.Dataset.Type, err)
	}
	src := instrument(raw, cfg.Dataset.Type, sink, logg)

	policy, err := arbiter.New(cfg.Engine, logger.New("arbiter"))
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	store, err := predictionlog.New(cfg.PredictionLog)
	if err != nil {
		return nil, fmt.Errorf("prediction log: %w", err)
	}

	models := modelstore.Dir(cfg.Model.Dir)
	rec := recommend.New(src, models, policy,
		recommend.WithFormatter(explain.New(cfg.Explain.CurrencySymbol, cfg.Explain.Tag(), cfg.Engine.RadiusKm)),
		recommend.WithMetrics(sink),
		recommend.WithPredictionLog(store),
		recommend.WithLogger(logger.New("recommend")),
	)
	return &Service{
		Config:      cfg,
		Recommender: rec,
		Trainer:     NewTrainer(src, models, cfg.Model.Features, logger.New("trainer")),
		Source:      src,
		Models:      models,
		sink:        sink,
		store:       store,
		log:         logg,
	}, nil
}

// Run starts the HTTP API, the MQTT transport when enabled and the
// Prometheus endpoint when an address is configured. It blocks until ctx is
// cancelled or a transport fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct {
		name string
		run  func(context.Context) error
	}
	api := apirecommend.NewServer(s.Recommender,
		apirecommend.WithTrainer(s.Trainer),
		apirecommend.WithLogger(logger.New("http")),
	)
	tasks := []task{{"http", func(ctx context.Context) error { return api.Run(ctx, s.Config.HTTP.Address) }}}
	if s.Config.MQTT.Enabled {
		srv := mqtt.NewServer(s.Config.MQTT, s.Recommender, logger.New("mqtt"))
		tasks = append(tasks, task{"mqtt", srv.Run})
	}
	if addr := s.Config.Metrics.PrometheusAddr; addr != "" {
		tasks = append(tasks, task{"prometheus", func(ctx context.Context) error { return metrics.StartPromServer(ctx, addr) }})
	}

	errs := make(chan error, len(tasks))
	for _, t := range tasks {
		go func() {
			err := t.run(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", t.name, err)
				s.log.Errorf("%v", err)
			}
			errs <- err
		}()
	}

	var joined []error
	for range tasks {
		if err := <-errs; err != nil {
			joined = append(joined, err)
			cancel()
		}
	}
	return errors.Join(joined...)
}

// Close releases the prediction log and flushes pending monitoring events.
func (s *Service) Close() error {
	monitoring.Flush(2 * time.Second)
	return s.store.Close()
}
