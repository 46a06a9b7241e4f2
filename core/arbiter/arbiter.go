package arbiter

import (
	"fmt"
	"time"

	"github.com/kilianp07/freightrec/core/geo"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/prediction"
)

// Method identifies how a price was obtained.
type Method string

// High-confidence policy tags.
const (
	MethodGeographic         Method = "geographic_coordinates"
	MethodGeographicPriority Method = "geographic_priority"
	MethodSimilarDistance    Method = "similar_distance"
	MethodInsufficientData   Method = "insufficient_data"
)

// Base policy tags. MethodGeographic is shared.
const (
	MethodCombinedGeoPriority Method = "combined_geo_priority"
	MethodCombinedBalanced    Method = "combined_balanced"
	MethodModel               Method = "ml_model"
)

// Policy names accepted by New.
const (
	PolicyHighConfidence = "high_confidence"
	PolicyBase           = "base"
)

// Query is one price request.
type Query struct {
	Origin      model.Coordinate
	Destination model.Coordinate
	DistanceKm  float64
	Month       int
	// Year feeds the model's year feature.
	Year int
}

// Validate checks the query before any evidence is evaluated.
func (q Query) Validate() error {
	if err := q.Origin.Validate(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if err := q.Destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !(q.DistanceKm > 0) {
		return fmt.Errorf("distance %v must be positive", q.DistanceKm)
	}
	if q.Month < 1 || q.Month > 12 {
		return fmt.Errorf("month %d out of range", q.Month)
	}
	return nil
}

func (q Query) input(pricePerKm float64) prediction.Input {
	year := q.Year
	if year == 0 {
		year = time.Now().Year()
	}
	return prediction.Input{
		DistanceKm:  q.DistanceKm,
		Month:       q.Month,
		Year:        year,
		Origin:      q.Origin,
		Destination: q.Destination,
		PricePerKm:  pricePerKm,
	}
}

// Predictor is the model side of the arbitration. prediction.Model
// implements it.
type Predictor interface {
	Predict(in prediction.Input) (prediction.Prediction, error)
}

// Policy arbitrates one query against a dataset and a model. Implementations
// are deterministic: identical inputs give identical results.
type Policy interface {
	Name() string
	Decide(q Query, routes model.Dataset, m Predictor) (Result, error)
}

// Config tunes both policies.
type Config struct {
	Policy            string  `json:"policy"`
	RadiusKm          float64 `json:"radius_km"`
	MinGeoRoutes      int     `json:"min_geo_routes"`
	DistanceTolerance float64 `json:"distance_tolerance"`
	MinDistanceRoutes int     `json:"min_distance_routes"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyHighConfidence
	}
	if c.RadiusKm <= 0 {
		c.RadiusKm = geo.DefaultRadiusKm
	}
	if c.MinGeoRoutes <= 0 {
		c.MinGeoRoutes = 5
	}
	if c.DistanceTolerance <= 0 {
		c.DistanceTolerance = 0.1
	}
	if c.MinDistanceRoutes <= 0 {
		c.MinDistanceRoutes = 5
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyHighConfidence, PolicyBase:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.DistanceTolerance >= 1 {
		return fmt.Errorf("distance_tolerance %v must be below 1", c.DistanceTolerance)
	}
	return nil
}

// New returns the policy named by cfg.Policy.
func New(cfg Config, log logger.Logger) (Policy, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy == PolicyBase {
		return NewBase(cfg, log), nil
	}
	return NewHighConfidence(cfg, log), nil
}
