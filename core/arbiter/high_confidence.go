package arbiter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightrec/core/geo"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/pricing"
)

const (
	highConfidenceTopN = 3
	// geographic tier
	geoBoost   = 1.25
	geoCeiling = 0.99
	// geographic priority tier
	priorityGeoWeight  = 0.75
	priorityGeoCeiling = 0.95
	// similar distance tier
	distanceSaturation = 50.0
	distanceCeiling    = 0.7
)

// HighConfidence evaluates evidence tiers in strict priority order:
// enough geographic matches, a few geographic matches blended with the
// model, routes of similar length, and finally insufficient data.
type HighConfidence struct {
	cfg     Config
	matcher geo.Matcher
	logger  logger.Logger
}

// NewHighConfidence returns the tiered policy.
func NewHighConfidence(cfg Config, log logger.Logger) *HighConfidence {
	cfg.SetDefaults()
	return &HighConfidence{cfg: cfg, matcher: geo.NewMatcher(cfg.RadiusKm), logger: logger.OrNop(log)}
}

// Name implements Policy.
func (p *HighConfidence) Name() string { return PolicyHighConfidence }

// Decide implements Policy. The model is only consulted by the geographic
// priority tier.
func (p *HighConfidence) Decide(q Query, routes model.Dataset, m Predictor) (Result, error) {
	matches := p.matcher.Match(q.Origin, q.Destination, routes)
	agg := pricing.Aggregator{TopN: highConfidenceTopN, RadiusKm: p.cfg.RadiusKm}.Aggregate(matches)

	switch {
	case len(matches) >= p.cfg.MinGeoRoutes:
		conf := math.Min(agg.MeanSimilarity/100*geoBoost, geoCeiling)
		p.logger.Debugf("tier geographic: %d routes, confidence %.3f", len(matches), conf)
		return GeographicResult{Geo: agg, FinalConfidence: conf}, nil

	case len(matches) > 0:
		if m == nil {
			return nil, fmt.Errorf("geographic priority tier: no model")
		}
		mp, err := m.Predict(q.input(pricing.PricePerKm(matches)))
		if err != nil {
			return nil, fmt.Errorf("geographic priority tier: %w", err)
		}
		geoConf := math.Min(agg.MeanSimilarity/100, priorityGeoCeiling)
		res := BlendedResult{
			Tag:             MethodGeographicPriority,
			Geo:             agg,
			Model:           mp,
			GeoConfidence:   geoConf,
			GeoWeight:       priorityGeoWeight,
			FinalPrice:      pricing.RoundToStep(priorityGeoWeight**agg.Price + (1-priorityGeoWeight)*mp.Price),
			FinalConfidence: priorityGeoWeight*geoConf + (1-priorityGeoWeight)*prediction.ModelConfidence,
		}
		p.logger.Debugf("tier geographic priority: %d routes, geo %.0f, model %.0f", len(matches), *agg.Price, mp.Price)
		return res, nil
	}

	similar := routes.WithinDistance(q.DistanceKm, p.cfg.DistanceTolerance)
	if len(similar) >= p.cfg.MinDistanceRoutes {
		res := distanceFallback(similar)
		if res.MeanPrice > 0 {
			p.logger.Debugf("tier similar distance: %d routes, confidence %.3f", res.Count, res.FinalConfidence)
			return res, nil
		}
		p.logger.Warnf("similar-distance routes have a non-positive mean price %.2f", res.MeanPrice)
	}

	p.logger.Debugf("tier insufficient data: %d similar-distance routes", len(similar))
	return InsufficientDataResult{GeoRoutes: len(matches), DistanceRoutes: len(similar)}, nil
}

func distanceFallback(routes []model.HistoricalRoute) DistanceFallbackResult {
	prices := make([]float64, len(routes))
	perKm := make([]float64, len(routes))
	for i, r := range routes {
		prices[i] = r.Price
		perKm[i] = r.PricePerKm
	}
	mean, std := stat.MeanStdDev(prices, nil)
	// A non-positive mean has no meaningful dispersion: report no confidence.
	cv := 1.0
	if mean > 0 {
		cv = std / mean
	}
	if math.IsNaN(cv) {
		cv = 0
	}
	conf := math.Min(float64(len(routes))/distanceSaturation, distanceCeiling) * math.Max(0, 1-cv)
	conf = math.Min(math.Max(conf, 0), 1)
	return DistanceFallbackResult{
		Count:           len(routes),
		MeanPrice:       mean,
		MeanPricePerKm:  stat.Mean(perKm, nil),
		CV:              cv,
		FinalPrice:      pricing.RoundToStep(mean),
		FinalConfidence: conf,
	}
}
