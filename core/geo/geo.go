// Package geo matches historical routes against a query by the geodesic
// proximity of both endpoints and scores how similar each match is.
package geo

import (
	"sort"

	"github.com/tidwall/geodesic"

	"github.com/kilianp07/freightrec/core/model"
)

// DefaultRadiusKm is the search radius applied around each endpoint.
const DefaultRadiusKm = 50.0

// DistanceKm returns the geodesic distance between a and b on the WGS84
// ellipsoid, in kilometers.
func DistanceKm(a, b model.Coordinate) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lng, b.Lat, b.Lng, &meters, nil, nil)
	return meters / 1000
}

// Similarity converts the origin and destination distances of a match into a
// score in [0,100]. Each endpoint contributes up to 50 points, decreasing
// linearly to 0 at the radius.
func Similarity(originKm, destKm, radiusKm float64) float64 {
	return endpointScore(originKm, radiusKm) + endpointScore(destKm, radiusKm)
}

func endpointScore(d, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	s := (1 - d/radius) * 50
	if s < 0 {
		return 0
	}
	if s > 50 {
		return 50
	}
	return s
}

// Matcher filters historical routes lying within RadiusKm of both query
// endpoints.
type Matcher struct {
	RadiusKm float64
	// Distance computes the distance in km between two coordinates. It
	// defaults to DistanceKm.
	Distance func(a, b model.Coordinate) float64
}

// NewMatcher returns a Matcher using the WGS84 geodesic distance. A
// non-positive radius selects DefaultRadiusKm.
func NewMatcher(radiusKm float64) Matcher {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return Matcher{RadiusKm: radiusKm, Distance: DistanceKm}
}

// Match returns every route whose origin lies within the radius of origin and
// whose destination lies within the radius of dest, scored and sorted by
// descending similarity. Ties keep dataset order. An empty input yields an
// empty result.
func (m Matcher) Match(origin, dest model.Coordinate, routes []model.HistoricalRoute) []model.ScoredRoute {
	radius := m.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}
	dist := m.Distance
	if dist == nil {
		dist = DistanceKm
	}
	var out []model.ScoredRoute
	for _, r := range routes {
		do := dist(r.Origin, origin)
		if do > radius {
			continue
		}
		dd := dist(r.Destination, dest)
		if dd > radius {
			continue
		}
		out = append(out, model.ScoredRoute{
			HistoricalRoute:       r,
			OriginDistanceKm:      do,
			DestinationDistanceKm: dd,
			Similarity:            Similarity(do, dd, radius),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
