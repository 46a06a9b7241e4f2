// Package explain renders arbitration results as short natural-language
// summaries.
package explain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/geo"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/pricing"
)

// DefaultCurrencySymbol prefixes every rendered amount.
const DefaultCurrencySymbol = "R$"

// DefaultLanguage controls number formatting when none is configured.
var DefaultLanguage = language.English

// Qualifier names a confidence in [0,1].
func Qualifier(confidence float64) string {
	switch {
	case confidence < 0.5:
		return "low"
	case confidence < 0.8:
		return "moderate"
	default:
		return "high"
	}
}

var methodLabels = map[arbiter.Method]string{
	arbiter.MethodGeographic:          "geographic coordinates",
	arbiter.MethodGeographicPriority:  "geographic priority",
	arbiter.MethodSimilarDistance:     "similar distance",
	arbiter.MethodCombinedGeoPriority: "similar routes and model, geographic priority",
	arbiter.MethodCombinedBalanced:    "similar routes and model, balanced",
	arbiter.MethodModel:               "trained model",
}

// Formatter renders results. The zero value is not usable; use New.
type Formatter struct {
	p        *message.Printer
	symbol   string
	radiusKm float64
}

// New returns a Formatter printing numbers for lang. An empty symbol selects
// DefaultCurrencySymbol and a non-positive radius geo.DefaultRadiusKm.
func New(symbol string, lang language.Tag, radiusKm float64) Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	if radiusKm <= 0 {
		radiusKm = geo.DefaultRadiusKm
	}
	return Formatter{p: message.NewPrinter(lang), symbol: symbol, radiusKm: radiusKm}
}

// Money renders an amount with two decimals and the currency symbol.
func (f Formatter) Money(v float64) string {
	return f.p.Sprintf("%s %.2f", f.symbol, v)
}

// Error renders a failure. No price is mentioned.
func (f Formatter) Error(msg string) string {
	if msg == "" {
		msg = "unknown error"
	}
	return "Unable to recommend a price: " + msg
}

// Explain renders res.
func (f Formatter) Explain(res arbiter.Result) string {
	if r, ok := res.(arbiter.InsufficientDataResult); ok {
		return f.Error(f.p.Sprintf("%s (%d similar routes, %d routes of similar distance)",
			arbiter.InsufficientDataMessage, r.GeoRoutes, r.DistanceRoutes))
	}
	price := res.Price()
	if price == nil {
		return f.Error(arbiter.InsufficientDataMessage)
	}

	var b strings.Builder
	pct := pricing.RoundTenth(res.Confidence() * 100)
	b.WriteString(f.p.Sprintf("Recommended price: %s per truck\n", f.Money(*price)))
	b.WriteString(f.p.Sprintf("Confidence: %.1f%% (%s)\n", pct, Qualifier(res.Confidence())))
	b.WriteString(f.p.Sprintf("Method: %s\n", methodLabels[res.Method()]))

	switch r := res.(type) {
	case arbiter.GeographicResult:
		if r.Model != nil {
			f.similarRoutes(&b, r.Geo.RouteCount, r.Geo.Top)
			break
		}
		b.WriteString(f.p.Sprintf("Based on %d similar routes within a %.0f km radius\n", r.Geo.RouteCount, f.radiusKm))
	case arbiter.BlendedResult:
		if r.Tag == arbiter.MethodGeographicPriority {
			b.WriteString(f.p.Sprintf("Based on %d similar routes and the predictive model\n", r.Geo.RouteCount))
			b.WriteString(f.p.Sprintf("Geographic prediction: %s (%.0f%%)\n", f.Money(*r.Geo.Price), r.GeoWeight*100))
			b.WriteString(f.p.Sprintf("Model prediction: %s (%.0f%%)\n", f.Money(r.Model.Price), r.ModelWeight()*100))
			break
		}
		f.similarRoutes(&b, r.Geo.RouteCount, r.Geo.Top)
		b.WriteString(f.p.Sprintf("Geographic prediction: %s, model prediction: %s\n", f.Money(*r.Geo.Price), f.Money(r.Model.Price)))
	case arbiter.DistanceFallbackResult:
		b.WriteString(f.p.Sprintf("Based on %d routes of similar distance\n", r.Count))
		b.WriteString(f.p.Sprintf("Average price per km: %s/km\n", f.Money(r.MeanPricePerKm)))
	case arbiter.ModelOnlyResult:
		b.WriteString(f.p.Sprintf("No similar routes within a %.0f km radius, price from the trained model\n", f.radiusKm))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f Formatter) similarRoutes(b *strings.Builder, n int, top []model.ScoredRoute) {
	b.WriteString(f.p.Sprintf("Based on %d similar route(s) within a %.0f km radius\n", n, f.radiusKm))
	if len(top) == 0 {
		return
	}
	r := top[0]
	b.WriteString("Most similar route:\n")
	b.WriteString(f.p.Sprintf("- Origin distance: %.1f km\n", r.OriginDistanceKm))
	b.WriteString(f.p.Sprintf("- Destination distance: %.1f km\n", r.DestinationDistanceKm))
	b.WriteString(f.p.Sprintf("- Freight price: %s\n", f.Money(r.Price)))
	b.WriteString(f.p.Sprintf("- Similarity: %.1f/100\n", r.Similarity))
}
