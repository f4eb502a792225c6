package adx

import (
	"github.com/guregu/null/v6"
)

// wilderSum advances a Wilder running sum by one sample:
// the prior sum decays by 1/period and the new sample is added.
func wilderSum(prev, x float64, period int) float64 {
	p := float64(period)
	return prev - (prev / p) + x
}

// wilderAverage advances a Wilder average by one sample.
// wilderAverage(S/p, x, p) == wilderSum(S, x, p)/p up to rounding.
func wilderAverage(prev, x float64, period int) float64 {
	p := float64(period)
	return ((prev * (p - 1)) + x) / p
}

// smooth turns a raw per-bar column into Wilder running sums.
// The seed at index period is the sum of raw[1..period]; index 0 is a
// boundary value and never enters the window. Cells before the seed stay null,
// and nothing is produced unless len(raw) > period >= 1.
func smooth(raw []float64, period int) []null.Float {
	out := make([]null.Float, len(raw))
	if period < 1 || len(raw) <= period {
		return out
	}

	var seed float64
	for _, v := range raw[1 : period+1] {
		seed += v
	}
	out[period] = null.FloatFrom(seed)

	prev := seed
	for i := period + 1; i < len(raw); i++ {
		prev = wilderSum(prev, raw[i], period)
		out[i] = null.FloatFrom(prev)
	}
	return out
}

// smoothDX turns DX into ADX. The seed at 2*period is the plain mean of
// DX[period .. 2*period-1]; later values use the Wilder average.
func smoothDX(dx []null.Float, period int) []null.Float {
	out := make([]null.Float, len(dx))
	start := 2 * period
	if period < 1 || len(dx) <= start {
		return out
	}

	var sum float64
	for _, v := range dx[period:start] {
		sum += v.Float64
	}
	prev := sum / float64(period)
	out[start] = null.FloatFrom(prev)

	for i := start + 1; i < len(dx); i++ {
		prev = wilderAverage(prev, dx[i].Float64, period)
		out[i] = null.FloatFrom(prev)
	}
	return out
}
