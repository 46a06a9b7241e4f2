// Package dataset defines where historical routes come from. Sources are
// created from configuration through a factory registry and reloaded on
// every request so that updates are visible immediately.
package dataset

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightrec/core/factory"
	"github.com/kilianp07/freightrec/core/model"
)

// ErrUnavailable reports a missing or unreadable dataset.
var ErrUnavailable = errors.New("historical dataset unavailable")

// Source loads the complete historical dataset.
type Source interface {
	Load(ctx context.Context) (model.Dataset, error)
}

// DropCounter is implemented by sources that skip unusable rows while
// loading.
type DropCounter interface {
	Dropped() int
}

// Static is an in-memory Source.
type Static model.Dataset

// Load returns a copy of the routes.
func (s Static) Load(context.Context) (model.Dataset, error) {
	return append(model.Dataset(nil), s...), nil
}

var registry = factory.NewRegistry[Source]()

// Register adds a source factory identified by name.
func Register(name string, f factory.Factory[Source]) error {
	return registry.Register(name, f)
}

// New creates the Source described by cfg.
func New(cfg factory.ModuleConfig) (Source, error) {
	return registry.Create(cfg)
}

// Types lists the registered source types.
func Types() []string { return registry.Names() }

// Stats summarizes a dataset.
type Stats struct {
	Routes         int     `json:"routes"`
	MinDistanceKm  float64 `json:"min_distance_km"`
	MaxDistanceKm  float64 `json:"max_distance_km"`
	MeanPrice      float64 `json:"mean_price"`
	MeanPricePerKm float64 `json:"mean_price_per_km"`
	FirstYear      int     `json:"first_year"`
	LastYear       int     `json:"last_year"`
}

// Describe computes summary statistics.
func Describe(ds model.Dataset) Stats {
	if len(ds) == 0 {
		return Stats{}
	}
	st := Stats{
		Routes:        len(ds),
		MinDistanceKm: math.Inf(1),
		MaxDistanceKm: math.Inf(-1),
		FirstYear:     ds[0].Year,
		LastYear:      ds[0].Year,
	}
	prices := make([]float64, len(ds))
	perKm := make([]float64, len(ds))
	for i, r := range ds {
		prices[i], perKm[i] = r.Price, r.PricePerKm
		st.MinDistanceKm = math.Min(st.MinDistanceKm, r.DistanceKm)
		st.MaxDistanceKm = math.Max(st.MaxDistanceKm, r.DistanceKm)
		st.FirstYear = min(st.FirstYear, r.Year)
		st.LastYear = max(st.LastYear, r.Year)
	}
	st.MeanPrice = stat.Mean(prices, nil)
	st.MeanPricePerKm = stat.Mean(perKm, nil)
	return st
}
