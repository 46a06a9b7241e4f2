package pricing

import "github.com/shopspring/decimal"

// Step is the currency granularity every emitted price is snapped to.
const Step = 5

var step = decimal.NewFromInt(Step)

// RoundToStep snaps v to the nearest multiple of Step. Halfway values round
// to the even multiple so repeated blending does not drift upwards.
func RoundToStep(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Div(step).RoundBank(0).Mul(step).Float64()
	return f
}

// RoundTenth rounds v to one decimal place, halfway values to even.
func RoundTenth(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(1).InexactFloat64()
}
