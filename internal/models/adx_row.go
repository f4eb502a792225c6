package models

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// Output column names, in export order
const (
	ColumnTR        = "TR"
	ColumnPlusDM1   = "+DM1"
	ColumnMinusDM1  = "-DM1"
	ColumnTR14      = "TR14"
	ColumnPlusDM14  = "+DM14"
	ColumnMinusDM14 = "-DM14"
	ColumnPlusDI14  = "+DI14"
	ColumnMinusDI14 = "-DI14"
	ColumnDI14Diff  = "DI14 Diff"
	ColumnDI14Sum   = "DI14 Sum"
	ColumnDX        = "DX"
	ColumnADX       = "ADX"

	// Chart aliases
	ColumnPlusDI  = "+DI"
	ColumnMinusDI = "-DI"
)

// ADXColumns is the full output table layout
var ADXColumns = []string{
	ColumnOpen, ColumnHigh, ColumnLow, ColumnClose,
	ColumnTR, ColumnPlusDM1, ColumnMinusDM1,
	ColumnTR14, ColumnPlusDM14, ColumnMinusDM14,
	ColumnPlusDI14, ColumnMinusDI14, ColumnDI14Diff, ColumnDI14Sum,
	ColumnDX, ColumnADX,
}

// ADXRow is one row of the derived table, aligned by Index with its PriceBar.
// Derived cells are null until the stage producing them has warmed up.
type ADXRow struct {
	Index     int        `json:"index"`
	Open      float64    `json:"open"`
	High      float64    `json:"high"`
	Low       float64    `json:"low"`
	Close     float64    `json:"close"`
	TR        null.Float `json:"tr"`
	PlusDM1   null.Float `json:"plus_dm1"`
	MinusDM1  null.Float `json:"minus_dm1"`
	TR14      null.Float `json:"tr14"`
	PlusDM14  null.Float `json:"plus_dm14"`
	MinusDM14 null.Float `json:"minus_dm14"`
	PlusDI14  null.Float `json:"plus_di14"`
	MinusDI14 null.Float `json:"minus_di14"`
	DI14Diff  null.Float `json:"di14_diff"`
	DI14Sum   null.Float `json:"di14_sum"`
	DX        null.Float `json:"dx"`
	ADX       null.Float `json:"adx"`
}

// PlusDI is the chart alias of PlusDI14
func (r ADXRow) PlusDI() null.Float { return r.PlusDI14 }

// MinusDI is the chart alias of MinusDI14
func (r ADXRow) MinusDI() null.Float { return r.MinusDI14 }

// Chartable reports whether ADX, +DI and -DI are all defined
func (r ADXRow) Chartable() bool {
	return r.ADX.Valid && r.PlusDI14.Valid && r.MinusDI14.Valid
}

// Values returns the row cells in ADXColumns order
func (r ADXRow) Values() []null.Float {
	return []null.Float{
		null.FloatFrom(r.Open), null.FloatFrom(r.High), null.FloatFrom(r.Low), null.FloatFrom(r.Close),
		r.TR, r.PlusDM1, r.MinusDM1,
		r.TR14, r.PlusDM14, r.MinusDM14,
		r.PlusDI14, r.MinusDI14, r.DI14Diff, r.DI14Sum,
		r.DX, r.ADX,
	}
}

// ADXRowFromValues is the inverse of Values. The OHLC cells must be defined.
func ADXRowFromValues(index int, v []null.Float) (ADXRow, error) {
	if len(v) != len(ADXColumns) {
		return ADXRow{}, fmt.Errorf("row %d has %d cells, expected %d", index, len(v), len(ADXColumns))
	}
	for i, c := range RequiredColumns {
		if !v[i].Valid {
			return ADXRow{}, fmt.Errorf("row %d: %s is undefined", index, c)
		}
	}
	return ADXRow{
		Index:     index,
		Open:      v[0].Float64,
		High:      v[1].Float64,
		Low:       v[2].Float64,
		Close:     v[3].Float64,
		TR:        v[4],
		PlusDM1:   v[5],
		MinusDM1:  v[6],
		TR14:      v[7],
		PlusDM14:  v[8],
		MinusDM14: v[9],
		PlusDI14:  v[10],
		MinusDI14: v[11],
		DI14Diff:  v[12],
		DI14Sum:   v[13],
		DX:        v[14],
		ADX:       v[15],
	}, nil
}

// ChartPoint is one row of the chartable view. Label starts at 1.
type ChartPoint struct {
	Label   int     `json:"label"`
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`
}

// ChartSummary holds the latest chart values shown above the chart
type ChartSummary struct {
	LatestADX     float64 `json:"latest_adx"`
	LatestPlusDI  float64 `json:"latest_plus_di"`
	LatestMinusDI float64 `json:"latest_minus_di"`
	TotalRows     int     `json:"total_rows"`
}
