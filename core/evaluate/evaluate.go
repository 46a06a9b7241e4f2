// Package evaluate replays historical routes through an arbitration policy
// and measures how close the recommended prices land to the prices actually
// paid.
package evaluate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/pricing"
)

// Defaults applied by Options.SetDefaults.
const (
	DefaultScenarios    = 20
	DefaultTolerancePct = 15.0
	// AcceptableAccuracyPct is the accuracy rate above which a run is
	// considered acceptable.
	AcceptableAccuracyPct = 70.0
)

// Options controls a run.
type Options struct {
	// Scenarios is the number of routes replayed. Zero selects
	// DefaultScenarios; a negative value replays the whole dataset.
	Scenarios int `json:"num_scenarios"`
	// TolerancePct is the largest relative error, in percent, still counted
	// as accurate.
	TolerancePct float64 `json:"acceptable_error"`
	Seed         uint64  `json:"seed"`
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Scenarios == 0 {
		o.Scenarios = DefaultScenarios
	}
	if o.TolerancePct <= 0 {
		o.TolerancePct = DefaultTolerancePct
	}
}

// Scenario is the outcome for one replayed route.
type Scenario struct {
	Scenario        int              `json:"scenario"`
	Origin          model.Coordinate `json:"origin"`
	Destination     model.Coordinate `json:"destination"`
	TotalDistance   float64          `json:"total_distance"`
	Month           int              `json:"month"`
	HistoricalPrice float64          `json:"historical_price"`
	Prediction      *float64         `json:"prediction"`
	Method          string           `json:"method"`
	Confidence      float64          `json:"confidence"`
	AbsoluteDiff    *float64         `json:"absolute_diff"`
	PercentageDiff  *float64         `json:"percentage_diff"`
	IsAcceptable    bool             `json:"is_acceptable"`
	Error           string           `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Timestamp             time.Time      `json:"timestamp"`
	Policy                string         `json:"policy"`
	TolerancePct          float64        `json:"acceptable_error"`
	TotalScenarios        int            `json:"total_scenarios"`
	Predicted             int            `json:"predicted"`
	AcceptablePredictions int            `json:"acceptable_predictions"`
	AccuracyRate          float64        `json:"accuracy_rate"`
	MeanAbsoluteError     float64        `json:"mean_absolute_error"`
	MeanPercentageError   float64        `json:"mean_percentage_error"`
	Methods               map[string]int `json:"methods"`
	Acceptable            bool           `json:"acceptable"`
	Scenarios             []Scenario     `json:"scenarios"`
}

// Run replays a sample of ds through p. Each route is decided against the
// dataset without that route so it cannot match itself. Failures of single
// scenarios are recorded in the report and do not abort the run; only a
// cancelled ctx does.
func Run(ctx context.Context, p arbiter.Policy, ds model.Dataset, m arbiter.Predictor, opts Options, now time.Time) (Report, error) {
	opts.SetDefaults()
	rep := Report{
		Timestamp:    now,
		Policy:       p.Name(),
		TolerancePct: opts.TolerancePct,
		Methods:      map[string]int{},
		Scenarios:    []Scenario{},
	}
	var absErrs, pctErrs []float64
	for n, i := range sample(len(ds), opts.Scenarios, opts.Seed) {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		r := ds[i]
		sc := Scenario{
			Scenario:        n + 1,
			Origin:          r.Origin,
			Destination:     r.Destination,
			TotalDistance:   r.DistanceKm,
			Month:           r.Month,
			HistoricalPrice: r.Price,
		}
		if !(r.Price > 0) {
			sc.Error = fmt.Sprintf("historical price %v is not positive", r.Price)
			rep.Methods["error"]++
			rep.Scenarios = append(rep.Scenarios, sc)
			continue
		}
		q := arbiter.Query{Origin: r.Origin, Destination: r.Destination, DistanceKm: r.DistanceKm, Month: r.Month, Year: r.Year}
		res, err := p.Decide(q, ds.Without(i), m)
		if err != nil {
			sc.Error = err.Error()
			rep.Methods["error"]++
			rep.Scenarios = append(rep.Scenarios, sc)
			continue
		}
		sc.Method = string(res.Method())
		sc.Confidence = pricing.RoundTenth(res.Confidence() * 100)
		rep.Methods[sc.Method]++
		if price := res.Price(); price != nil {
			abs := math.Abs(*price - r.Price)
			pct := pricing.RoundTenth(abs / r.Price * 100)
			sc.Prediction, sc.AbsoluteDiff, sc.PercentageDiff = price, &abs, &pct
			sc.IsAcceptable = pct <= opts.TolerancePct
			rep.Predicted++
			absErrs = append(absErrs, abs)
			pctErrs = append(pctErrs, pct)
			if sc.IsAcceptable {
				rep.AcceptablePredictions++
			}
		}
		rep.Scenarios = append(rep.Scenarios, sc)
	}
	rep.TotalScenarios = len(rep.Scenarios)
	if rep.TotalScenarios > 0 {
		rep.AccuracyRate = pricing.RoundTenth(float64(rep.AcceptablePredictions) / float64(rep.TotalScenarios) * 100)
	}
	if len(absErrs) > 0 {
		rep.MeanAbsoluteError = pricing.RoundTenth(stat.Mean(absErrs, nil))
		rep.MeanPercentageError = pricing.RoundTenth(stat.Mean(pctErrs, nil))
	}
	rep.Acceptable = rep.TotalScenarios > 0 && rep.AccuracyRate >= AcceptableAccuracyPct
	return rep, nil
}

// sample returns k distinct indices of [0,n) in ascending order, chosen
// deterministically from seed. k <= 0 or k >= n selects every index.
func sample(n, k int, seed uint64) []int {
	if k <= 0 || k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}
