// Package pricing turns a set of scored similar routes into a single price
// estimate with a confidence value.
package pricing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightrec/core/model"
)

// Confidence blend between the number of corroborating routes and how close
// they are to the query.
const (
	countWeight      = 0.4
	similarityWeight = 0.6
	countSaturation  = 10.0
)

// DefaultTopN is the number of contributing routes kept for explanation.
const DefaultTopN = 5

// Aggregation is the geographic price estimate for one query.
type Aggregation struct {
	// Found is false when no similar route was supplied. Price is nil and
	// Confidence is 0 in that case.
	Found          bool                `json:"found"`
	Price          *float64            `json:"price"`
	Confidence     float64             `json:"confidence"`
	RouteCount     int                 `json:"num_routes"`
	MeanSimilarity float64             `json:"avg_similarity"`
	Top            []model.ScoredRoute `json:"similar_routes"`
	Message        string              `json:"message"`
}

// Aggregator computes similarity-weighted prices.
type Aggregator struct {
	TopN     int
	RadiusKm float64
}

// Weights returns the normalized similarity weights of routes. They sum to 1
// for any non-empty input; when every similarity is 0 the weights are
// uniform.
func Weights(routes []model.ScoredRoute) []float64 {
	if len(routes) == 0 {
		return nil
	}
	w := make([]float64, len(routes))
	for i, r := range routes {
		w[i] = r.Similarity
	}
	total := floats.Sum(w)
	if total <= 0 {
		for i := range w {
			w[i] = 1
		}
		total = float64(len(w))
	}
	floats.Scale(1/total, w)
	return w
}

// WeightedPrice returns the unrounded similarity-weighted mean price.
func WeightedPrice(routes []model.ScoredRoute) float64 {
	if len(routes) == 0 {
		return 0
	}
	prices := make([]float64, len(routes))
	for i, r := range routes {
		prices[i] = r.Price
	}
	return floats.Dot(prices, Weights(routes))
}

// MeanSimilarity returns the arithmetic mean of the similarity scores.
func MeanSimilarity(routes []model.ScoredRoute) float64 {
	if len(routes) == 0 {
		return 0
	}
	s := make([]float64, len(routes))
	for i, r := range routes {
		s[i] = r.Similarity
	}
	return stat.Mean(s, nil)
}

// PricePerKm returns the aggregate price-per-km of routes, i.e. the sum of
// prices divided by the sum of distances.
func PricePerKm(routes []model.ScoredRoute) float64 {
	var price, km float64
	for _, r := range routes {
		price += r.Price
		km += r.DistanceKm
	}
	if km <= 0 {
		return 0
	}
	return price / km
}

// Confidence combines the number of routes (saturating at 10) and their mean
// similarity into a value in [0,1].
func Confidence(count int, meanSimilarity float64) float64 {
	nConf := float64(count) / countSaturation
	if nConf > 1 {
		nConf = 1
	}
	c := countWeight*nConf + similarityWeight*meanSimilarity/100
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// Aggregate computes the weighted price, rounded to Step, and its confidence.
// Callers must branch on Found rather than treat a zero price as valid.
func (a Aggregator) Aggregate(routes []model.ScoredRoute) Aggregation {
	if len(routes) == 0 {
		return Aggregation{Message: "no similar routes found"}
	}
	topN := a.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > len(routes) {
		topN = len(routes)
	}
	price := RoundToStep(WeightedPrice(routes))
	mean := MeanSimilarity(routes)
	msg := fmt.Sprintf("price based on %d similar route(s)", len(routes))
	if a.RadiusKm > 0 {
		msg += fmt.Sprintf(" within %gkm", a.RadiusKm)
	}
	return Aggregation{
		Found:          true,
		Price:          &price,
		Confidence:     Confidence(len(routes), mean),
		RouteCount:     len(routes),
		MeanSimilarity: mean,
		Top:            append([]model.ScoredRoute(nil), routes[:topN]...),
		Message:        msg,
	}
}
