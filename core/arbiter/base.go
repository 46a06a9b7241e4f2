package arbiter

import (
	"fmt"

	"github.com/kilianp07/freightrec/core/geo"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/pricing"
)

const (
	baseTopN = pricing.DefaultTopN

	geoOnlyThreshold     = 0.9
	geoPriorityThreshold = 0.7
	geoPriorityWeight    = 0.8
	balancedWeight       = 0.5
)

// Base always runs the model and blends it with the geographic estimate
// according to the geographic confidence.
type Base struct {
	cfg     Config
	matcher geo.Matcher
	logger  logger.Logger
}

// NewBase returns the confidence-threshold blend policy.
func NewBase(cfg Config, log logger.Logger) *Base {
	cfg.SetDefaults()
	return &Base{cfg: cfg, matcher: geo.NewMatcher(cfg.RadiusKm), logger: logger.OrNop(log)}
}

// Name implements Policy.
func (p *Base) Name() string { return PolicyBase }

// Decide implements Policy.
func (p *Base) Decide(q Query, routes model.Dataset, m Predictor) (Result, error) {
	if m == nil {
		return nil, fmt.Errorf("base policy: no model")
	}
	mp, err := m.Predict(q.input(0))
	if err != nil {
		return nil, fmt.Errorf("base policy: %w", err)
	}

	matches := p.matcher.Match(q.Origin, q.Destination, routes)
	if len(matches) == 0 {
		p.logger.Debugf("no similar routes, model price %.0f", mp.Price)
		return ModelOnlyResult{Model: mp}, nil
	}

	agg := pricing.Aggregator{TopN: baseTopN, RadiusKm: p.cfg.RadiusKm}.Aggregate(matches)
	c := agg.Confidence
	if c >= geoOnlyThreshold {
		p.logger.Debugf("geographic confidence %.3f, using similar routes only", c)
		return GeographicResult{Geo: agg, FinalConfidence: c, Model: &mp}, nil
	}

	tag, w := MethodCombinedBalanced, balancedWeight
	if c >= geoPriorityThreshold {
		tag, w = MethodCombinedGeoPriority, geoPriorityWeight
	}
	res := BlendedResult{
		Tag:             tag,
		Geo:             agg,
		Model:           mp,
		GeoConfidence:   c,
		GeoWeight:       w,
		FinalPrice:      pricing.RoundToStep(w**agg.Price + (1-w)*mp.Price),
		FinalConfidence: w*c + (1-w)*prediction.ModelConfidence,
	}
	p.logger.Debugf("%s: geo %.0f (conf %.3f), model %.0f", tag, *agg.Price, c, mp.Price)
	return res, nil
}
