// Package recommend is the outermost call boundary of the price engine. It
// converts host requests, loads the evidence, runs the configured policy and
// always answers with a structured Response.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/explain"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/predictionlog"
	"github.com/kilianp07/freightrec/core/pricing"
)

// ModelLoader loads the trained model artifacts.
type ModelLoader interface {
	Load(ctx context.Context) (prediction.Model, error)
}

// ModelLoaderFunc adapts a function to ModelLoader.
type ModelLoaderFunc func(ctx context.Context) (prediction.Model, error)

func (f ModelLoaderFunc) Load(ctx context.Context) (prediction.Model, error) { return f(ctx) }

// StaticModel returns a ModelLoader always yielding m.
func StaticModel(m prediction.Model) ModelLoader {
	return ModelLoaderFunc(func(context.Context) (prediction.Model, error) { return m, nil })
}

// Service answers recommendation requests. Dataset and model are loaded on
// every call so that refreshed artifacts are picked up without a restart.
// A Service is safe for concurrent use.
type Service struct {
	source    dataset.Source
	models    ModelLoader
	policy    arbiter.Policy
	formatter explain.Formatter
	sink      metrics.PredictionSink
	store     predictionlog.Store
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithFormatter overrides the default explanation formatter.
func WithFormatter(f explain.Formatter) Option { return func(s *Service) { s.formatter = f } }

// WithMetrics sends a PredictionEvent per request to sink.
func WithMetrics(sink metrics.PredictionSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithPredictionLog appends a Record per request to store.
func WithPredictionLog(store predictionlog.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.logger = logger.OrNop(l) } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator replaces the UUID request id generator.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// New returns a Service reading routes from src and the model from models.
func New(src dataset.Source, models ModelLoader, policy arbiter.Policy, opts ...Option) *Service {
	s := &Service{
		source:    src,
		models:    models,
		policy:    policy,
		formatter: explain.New("", explain.DefaultLanguage, 0),
		sink:      metrics.NopSink{},
		store:     predictionlog.Nop{},
		logger:    logger.Nop{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Policy returns the name of the active arbitration policy.
func (s *Service) Policy() string { return s.policy.Name() }

// Recommend prices one request. It never fails: every error is reported in
// the Response.
func (s *Service) Recommend(ctx context.Context, req Request) Response {
	start := s.now()
	id := requestID(ctx)
	if id == "" {
		id = s.newID()
	}

	q, res, err := s.run(ctx, req, start)
	resp := s.respond(res, err)
	resp.RequestID = id

	kind := resp.ErrorKind
	if kind != "" {
		s.logger.Warnf("request %s failed (%s): %v", id, kind, err)
		if Reported(kind, err) {
			monitoring.CaptureException(err, map[string]string{
				"error_kind": string(kind),
				"request_id": id,
				"policy":     s.policy.Name(),
			})
		}
	} else {
		s.logger.Debugw("recommendation served", map[string]any{
			"request_id": id,
			"method":     resp.Method,
			"price":      *resp.RecommendedPrice,
			"confidence": resp.Confidence,
		})
	}
	s.record(ctx, id, q, resp, s.now().Sub(start))
	return resp
}

// run does everything that can fail. Panics in the policy are converted to
// unexpected errors.
func (s *Service) run(ctx context.Context, req Request, now time.Time) (q arbiter.Query, res arbiter.Result, err error) {
	q, err = req.Query(now)
	if err != nil {
		return q, nil, err
	}
	routes, err := s.source.Load(ctx)
	if err != nil {
		return q, nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	m, err := s.models.Load(ctx)
	if err != nil {
		return q, nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	res, err = s.decide(q, routes, m)
	if err != nil {
		return q, nil, err
	}
	if res.Price() == nil {
		return q, res, ErrInsufficientEvidence
	}
	return q, res, nil
}

func (s *Service) decide(q arbiter.Query, routes model.Dataset, m prediction.Model) (res arbiter.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.CapturePanic(r, map[string]string{"policy": s.policy.Name()})
			res, err = nil, monitoring.PanicError(r)
		}
	}()
	return s.policy.Decide(q, routes, m)
}

func (s *Service) respond(res arbiter.Result, err error) Response {
	if err == nil {
		return Response{
			Success:          true,
			RecommendedPrice: res.Price(),
			Confidence:       pricing.RoundTenth(res.Confidence() * 100),
			Explanation:      s.formatter.Explain(res),
			Method:           string(res.Method()),
			Details:          res.Details(),
		}
	}
	resp := Response{
		ErrorKind: KindOf(err),
		Details:   map[string]any{},
	}
	if res != nil {
		resp.Method = string(res.Method())
		resp.Details = res.Details()
		resp.Explanation = s.formatter.Explain(res)
		resp.Error = arbiter.InsufficientDataMessage
		return resp
	}
	resp.Error = err.Error()
	resp.Explanation = s.formatter.Error(resp.Error)
	return resp
}

func (s *Service) record(ctx context.Context, id string, q arbiter.Query, resp Response, d time.Duration) {
	at := s.now()
	ev := metrics.PredictionEvent{
		Policy:        s.policy.Name(),
		Method:        resp.Method,
		Transport:     transport(ctx),
		Success:       resp.Success,
		ErrorKind:     string(resp.ErrorKind),
		Confidence:    resp.Confidence / 100,
		SimilarRoutes: resp.similarRoutes(),
		Duration:      d,
		Time:          at,
	}
	if rerr := s.sink.RecordPrediction(ev); rerr != nil {
		s.logger.Warnf("record prediction metrics: %v", rerr)
	}

	rec := predictionlog.Record{
		Timestamp: at,
		RequestID: id,
		Transport: ev.Transport,
		Policy:    ev.Policy,
		Query: predictionlog.Query{
			OriginLat:  q.Origin.Lat,
			OriginLng:  q.Origin.Lng,
			DestLat:    q.Destination.Lat,
			DestLng:    q.Destination.Lng,
			DistanceKm: q.DistanceKm,
			Month:      q.Month,
		},
		Success:    resp.Success,
		Method:     resp.Method,
		Price:      resp.RecommendedPrice,
		Confidence: resp.Confidence,
		ErrorKind:  string(resp.ErrorKind),
		Error:      resp.Error,
		DurationMs: float64(d.Microseconds()) / 1000,
	}
	// The log must not depend on the caller staying connected.
	if lerr := s.store.Append(context.WithoutCancel(ctx), rec); lerr != nil {
		s.logger.Warnf("append prediction log: %v", lerr)
	}
}
