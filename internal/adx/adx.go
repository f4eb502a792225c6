// Package adx computes the Average Directional Index over an OHLC series.
//
// The computation runs five stages in order: true range and directional
// movement, Wilder smoothing, directional index and DX, and ADX smoothing.
// Each stage only reads the columns of earlier stages. Cells a stage cannot
// produce yet (before its warm-up boundary) are null, never zero.
//
// A Table is immutable once built and a Calculator holds no state between
// calls, so independent series may be computed concurrently.
package adx

import (
	"github.com/guregu/null/v6"

	"github.com/trogers1052/adx-service/internal/models"
)

// DefaultPeriod is the conventional Wilder window
const DefaultPeriod = 14

// Calculator computes ADX tables for a fixed period
type Calculator struct {
	period int
}

// NewCalculator creates a Calculator. A period below 1 is accepted and
// produces tables where only TR, +DM1 and -DM1 are defined.
func NewCalculator(period int) *Calculator {
	return &Calculator{period: period}
}

// Period returns the smoothing window
func (c *Calculator) Period() int {
	return c.period
}

// Compute runs the full pipeline over series
func (c *Calculator) Compute(series models.Series) *Table {
	n := len(series)
	rows := make([]models.ADXRow, n)
	for i, bar := range series {
		rows[i] = models.ADXRow{
			Index: i,
			Open:  bar.Open,
			High:  bar.High,
			Low:   bar.Low,
			Close: bar.Close,
		}
	}

	tr := trueRange(series)
	plusDM, minusDM := directionalMovement(series)

	tr14 := smooth(tr, c.period)
	plusDM14 := smooth(plusDM, c.period)
	minusDM14 := smooth(minusDM, c.period)

	dx := make([]null.Float, n)
	for i := range rows {
		row := &rows[i]
		row.TR = null.FloatFrom(tr[i])
		row.PlusDM1 = null.FloatFrom(plusDM[i])
		row.MinusDM1 = null.FloatFrom(minusDM[i])
		row.TR14 = tr14[i]
		row.PlusDM14 = plusDM14[i]
		row.MinusDM14 = minusDM14[i]

		if !tr14[i].Valid {
			continue
		}
		plusDI := directionalIndex(plusDM14[i].Float64, tr14[i].Float64)
		minusDI := directionalIndex(minusDM14[i].Float64, tr14[i].Float64)
		diff, sum, dxValue := dxComponents(plusDI, minusDI)

		row.PlusDI14 = null.FloatFrom(plusDI)
		row.MinusDI14 = null.FloatFrom(minusDI)
		row.DI14Diff = null.FloatFrom(diff)
		row.DI14Sum = null.FloatFrom(sum)
		row.DX = null.FloatFrom(dxValue)
		dx[i] = row.DX
	}

	adx := smoothDX(dx, c.period)
	for i := range rows {
		rows[i].ADX = adx[i]
	}

	return &Table{period: c.period, rows: rows}
}

// Compute runs the pipeline with the given period
func Compute(series models.Series, period int) *Table {
	return NewCalculator(period).Compute(series)
}

// Table is the derived table for one series, one row per input bar
type Table struct {
	period int
	rows   []models.ADXRow
}

// Period returns the period the table was computed with
func (t *Table) Period() int {
	return t.period
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at index i
func (t *Table) Row(i int) models.ADXRow {
	return t.rows[i]
}

// Rows returns a copy of all rows
func (t *Table) Rows() []models.ADXRow {
	return append([]models.ADXRow(nil), t.rows...)
}

// Chartable returns the rows where ADX, +DI and -DI are all defined,
// labelled from 1. An empty result means there was not enough data.
func (t *Table) Chartable() []models.ChartPoint {
	var points []models.ChartPoint
	for _, r := range t.rows {
		if !r.Chartable() {
			continue
		}
		points = append(points, models.ChartPoint{
			Label:   len(points) + 1,
			ADX:     r.ADX.Float64,
			PlusDI:  r.PlusDI().Float64,
			MinusDI: r.MinusDI().Float64,
		})
	}
	return points
}

// HasChart reports whether at least one row is chartable
func (t *Table) HasChart() bool {
	for _, r := range t.rows {
		if r.Chartable() {
			return true
		}
	}
	return false
}

// Latest returns the last chartable point
func (t *Table) Latest() (models.ChartPoint, bool) {
	points := t.Chartable()
	if len(points) == 0 {
		return models.ChartPoint{}, false
	}
	return points[len(points)-1], true
}

// Snapshot returns the column/data form of the table
func (t *Table) Snapshot() *models.TableSnapshot {
	return models.NewTableSnapshot(t.rows)
}
