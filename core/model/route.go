package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate lies within the WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return fmt.Errorf("coordinate is NaN")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate parses a "lat,lng" string. Surrounding spaces are ignored.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected \"lat,lng\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return c, nil
}

// QuarterOf returns the calendar quarter (1-4) of a month (1-12).
func QuarterOf(month int) int { return (month-1)/3 + 1 }

// HistoricalRoute is one past freight shipment. Values are never mutated
// after construction.
type HistoricalRoute struct {
	Origin      Coordinate `json:"origin"`
	Destination Coordinate `json:"destination"`
	DistanceKm  float64    `json:"km"`
	Price       float64    `json:"price"`
	Month       int        `json:"month"`
	Quarter     int        `json:"quarter"`
	Year        int        `json:"year"`
	PricePerKm  float64    `json:"price_per_km"`
}

// NewHistoricalRoute builds a route and derives its quarter, year and
// price-per-km. Routes without a positive distance or a positive finite
// price are rejected.
func NewHistoricalRoute(origin, dest Coordinate, km, price float64, departure time.Time) (HistoricalRoute, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return HistoricalRoute{}, fmt.Errorf("price %v is not a finite number", price)
	}
	if price <= 0 {
		return HistoricalRoute{}, fmt.Errorf("price %v must be positive", price)
	}
	if math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return HistoricalRoute{}, fmt.Errorf("distance %v must be positive", km)
	}
	if departure.IsZero() {
		return HistoricalRoute{}, fmt.Errorf("departure date is required")
	}
	month := int(departure.Month())
	return HistoricalRoute{
		Origin:      origin,
		Destination: dest,
		DistanceKm:  km,
		Price:       price,
		Month:       month,
		Quarter:     QuarterOf(month),
		Year:        departure.Year(),
		PricePerKm:  price / km,
	}, nil
}

// ScoredRoute is a historical route matched against a query with its
// geodesic distances to the query endpoints and its similarity in [0,100].
type ScoredRoute struct {
	HistoricalRoute
	OriginDistanceKm      float64 `json:"origin_distance_km"`
	DestinationDistanceKm float64 `json:"destination_distance_km"`
	Similarity            float64 `json:"similarity_score"`
}

// Dataset is the read-only, position-indexed set of historical routes.
type Dataset []HistoricalRoute

// WithinDistance returns the routes whose distance lies within
// [km*(1-tolerance), km*(1+tolerance)].
func (d Dataset) WithinDistance(km, tolerance float64) []HistoricalRoute {
	lo, hi := km*(1-tolerance), km*(1+tolerance)
	var out []HistoricalRoute
	for _, r := range d {
		if r.DistanceKm >= lo && r.DistanceKm <= hi {
			out = append(out, r)
		}
	}
	return out
}

// Without returns a copy of the dataset with the route at index i removed.
func (d Dataset) Without(i int) Dataset {
	if i < 0 || i >= len(d) {
		return append(Dataset(nil), d...)
	}
	out := make(Dataset, 0, len(d)-1)
	out = append(out, d[:i]...)
	return append(out, d[i+1:]...)
}
