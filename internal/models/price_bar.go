package models

// Required OHLC input columns, in the order they are reported when missing
const (
	ColumnOpen  = "Open"
	ColumnHigh  = "High"
	ColumnLow   = "Low"
	ColumnClose = "Close"
)

// RequiredColumns lists the input columns every uploaded series must carry
var RequiredColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose}

// PriceBar represents one OHLC bar. Index is the 0-based position in the
// series; insertion order is time order.
type PriceBar struct {
	Index int     `json:"index"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Series is an ordered run of bars
type Series []PriceBar

// NewSeries builds a series from parallel OHLC slices, assigning indexes in order.
// All slices must have the same length; the shortest one wins otherwise.
func NewSeries(opens, highs, lows, closes []float64) Series {
	n := min(len(opens), len(highs), len(lows), len(closes))
	s := make(Series, n)
	for i := 0; i < n; i++ {
		s[i] = PriceBar{Index: i, Open: opens[i], High: highs[i], Low: lows[i], Close: closes[i]}
	}
	return s
}

// Highs returns the High column
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows returns the Low column
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Closes returns the Close column
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}
