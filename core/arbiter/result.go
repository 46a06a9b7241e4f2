package arbiter

import (
	"math"

	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/pricing"
)

// Result is the outcome of an arbitration. Exactly one concrete variant is
// returned per query and it is never modified afterwards.
type Result interface {
	Method() Method
	// Price is nil when no price could be recommended.
	Price() *float64
	Confidence() float64
	Details() map[string]any
}

func ptr(v float64) *float64 { return &v }

func geoDetails(agg pricing.Aggregation) map[string]any {
	routes := agg.Top
	if routes == nil {
		routes = []model.ScoredRoute{}
	}
	return map[string]any{
		"num_routes":     agg.RouteCount,
		"avg_similarity": pricing.RoundTenth(agg.MeanSimilarity),
		"similar_routes": routes,
	}
}

func addModelDetails(d map[string]any, geoPrice, geoConf float64, m prediction.Prediction) {
	d["geographic_prediction"] = geoPrice
	d["ml_prediction"] = m.Price
	d["model_confidence"] = m.Confidence
	d["similarity_confidence"] = geoConf
	d["difference_pct"] = differencePct(geoPrice, m.Price)
}

// differencePct is |a-b| / max(a,b), as a percentage with one decimal.
func differencePct(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi <= 0 {
		return 0
	}
	return pricing.RoundTenth(math.Abs(a-b) / hi * 100)
}

// GeographicResult is a price taken from similar routes alone.
type GeographicResult struct {
	Geo             pricing.Aggregation
	FinalConfidence float64
	// Model is set by the base policy, which always runs the model.
	Model *prediction.Prediction
}

func (r GeographicResult) Method() Method      { return MethodGeographic }
func (r GeographicResult) Price() *float64     { return ptr(*r.Geo.Price) }
func (r GeographicResult) Confidence() float64 { return r.FinalConfidence }

func (r GeographicResult) Details() map[string]any {
	d := geoDetails(r.Geo)
	d["geographic_prediction"] = *r.Geo.Price
	if r.Model != nil {
		addModelDetails(d, *r.Geo.Price, r.Geo.Confidence, *r.Model)
	}
	return d
}

// BlendedResult mixes the geographic and model prices.
type BlendedResult struct {
	Tag   Method
	Geo   pricing.Aggregation
	Model prediction.Prediction
	// GeoConfidence is the geographic confidence entering the blend.
	GeoConfidence   float64
	GeoWeight       float64
	FinalPrice      float64
	FinalConfidence float64
}

func (r BlendedResult) Method() Method      { return r.Tag }
func (r BlendedResult) Price() *float64     { return ptr(r.FinalPrice) }
func (r BlendedResult) Confidence() float64 { return r.FinalConfidence }

// ModelWeight is the share of the model price in the blend.
func (r BlendedResult) ModelWeight() float64 { return 1 - r.GeoWeight }

func (r BlendedResult) Details() map[string]any {
	d := geoDetails(r.Geo)
	addModelDetails(d, *r.Geo.Price, r.GeoConfidence, r.Model)
	d["geographic_weight"] = r.GeoWeight
	d["model_weight"] = r.ModelWeight()
	return d
}

// ModelOnlyResult is a model price used when no similar route exists.
type ModelOnlyResult struct {
	Model prediction.Prediction
}

func (r ModelOnlyResult) Method() Method      { return MethodModel }
func (r ModelOnlyResult) Price() *float64     { return ptr(r.Model.Price) }
func (r ModelOnlyResult) Confidence() float64 { return r.Model.Confidence }

func (r ModelOnlyResult) Details() map[string]any {
	return map[string]any{
		"num_routes":       0,
		"ml_prediction":    r.Model.Price,
		"model_confidence": r.Model.Confidence,
	}
}

// DistanceFallbackResult is the mean price of routes with a similar length.
type DistanceFallbackResult struct {
	Count          int
	MeanPrice      float64
	MeanPricePerKm float64
	// CV is the coefficient of variation of the prices.
	CV              float64
	FinalPrice      float64
	FinalConfidence float64
}

func (r DistanceFallbackResult) Method() Method      { return MethodSimilarDistance }
func (r DistanceFallbackResult) Price() *float64     { return ptr(r.FinalPrice) }
func (r DistanceFallbackResult) Confidence() float64 { return r.FinalConfidence }

func (r DistanceFallbackResult) Details() map[string]any {
	return map[string]any{
		"num_similar_distance_routes": r.Count,
		"avg_price":                   r.MeanPrice,
		"price_per_km":                r.MeanPricePerKm,
		"price_variation":             r.CV,
	}
}

// InsufficientDataMessage is reported when no tier had enough evidence.
const InsufficientDataMessage = "not enough data for a reliable prediction"

// InsufficientDataResult carries no price. It is a normal outcome, not an
// error.
type InsufficientDataResult struct {
	GeoRoutes      int
	DistanceRoutes int
}

func (r InsufficientDataResult) Method() Method      { return MethodInsufficientData }
func (r InsufficientDataResult) Price() *float64     { return nil }
func (r InsufficientDataResult) Confidence() float64 { return 0 }

func (r InsufficientDataResult) Details() map[string]any {
	return map[string]any{
		"similar_routes_found":          r.GeoRoutes,
		"similar_distance_routes_found": r.DistanceRoutes,
	}
}
