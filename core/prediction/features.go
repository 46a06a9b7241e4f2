package prediction

import (
	"strings"

	"github.com/kilianp07/freightrec/core/model"
)

// Canonical feature names understood by the adapter.
const (
	FeatureKm         = "KM"
	FeatureMonth      = "Mes"
	FeatureQuarter    = "Trimestre"
	FeatureYear       = "Ano"
	FeatureOriginLat  = "Lat_Origem"
	FeatureOriginLng  = "Lng_Origem"
	FeatureDestLat    = "Lat_Destino"
	FeatureDestLng    = "Lng_Destino"
	FeaturePricePerKm = "Valor_por_km"
)

// DefaultFeatures is the feature order used by the reference fitter.
var DefaultFeatures = []string{
	FeatureKm, FeatureMonth, FeatureQuarter, FeatureYear,
	FeatureOriginLat, FeatureOriginLng, FeatureDestLat, FeatureDestLng,
	FeaturePricePerKm,
}

var aliases = map[string]string{
	"km":              FeatureKm,
	"mes":             FeatureMonth,
	"mês":             FeatureMonth,
	"month":           FeatureMonth,
	"trimestre":       FeatureQuarter,
	"quarter":         FeatureQuarter,
	"ano":             FeatureYear,
	"year":            FeatureYear,
	"lat_origem":      FeatureOriginLat,
	"lng_origem":      FeatureOriginLng,
	"lat_destino":     FeatureDestLat,
	"lng_destino":     FeatureDestLng,
	"valor_por_km":    FeaturePricePerKm,
	"price_per_km":    FeaturePricePerKm,
	"origin_lat":      FeatureOriginLat,
	"origin_lng":      FeatureOriginLng,
	"destination_lat": FeatureDestLat,
	"destination_lng": FeatureDestLng,
}

// CanonicalFeature maps a metadata feature name to its canonical name. The
// second result is false for names the adapter does not know.
func CanonicalFeature(name string) (string, bool) {
	c, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Input holds the raw query features before scaling.
type Input struct {
	DistanceKm  float64
	Month       int
	Year        int
	Origin      model.Coordinate
	Destination model.Coordinate
	// PricePerKm is a placeholder the caller may fill from matched routes.
	PricePerKm float64
}

// RouteInput returns the features of a historical route, used for fitting.
func RouteInput(r model.HistoricalRoute) Input {
	return Input{
		DistanceKm:  r.DistanceKm,
		Month:       r.Month,
		Year:        r.Year,
		Origin:      r.Origin,
		Destination: r.Destination,
		PricePerKm:  r.PricePerKm,
	}
}

func (in Input) value(canonical string) float64 {
	switch canonical {
	case FeatureKm:
		return in.DistanceKm
	case FeatureMonth:
		return float64(in.Month)
	case FeatureQuarter:
		if in.Month < 1 {
			return 0
		}
		return float64(model.QuarterOf(in.Month))
	case FeatureYear:
		return float64(in.Year)
	case FeatureOriginLat:
		return in.Origin.Lat
	case FeatureOriginLng:
		return in.Origin.Lng
	case FeatureDestLat:
		return in.Destination.Lat
	case FeatureDestLng:
		return in.Destination.Lng
	case FeaturePricePerKm:
		return in.PricePerKm
	}
	return 0
}

// Vector returns the input ordered exactly by features. Unknown features are
// zero.
func (in Input) Vector(features []string) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		if c, ok := CanonicalFeature(f); ok {
			out[i] = in.value(c)
		}
	}
	return out
}
