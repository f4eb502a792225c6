// Package csvinput turns uploaded OHLC CSV files into validated price series.
package csvinput

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/adx-service/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CellError locates the first invalid OHLC cell. It unwraps to ErrInvalidNumeric.
type CellError struct {
	Row    int // 0-based data row
	Column string
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %s: invalid numeric value %q", e.Row, e.Column, e.Value)
}

func (e *CellError) Unwrap() error { return ErrInvalidNumeric }

// Parse reads a CSV with a header row and returns the Open/High/Low/Close
// columns as a series. Header names are matched exactly; other columns are
// ignored. Every OHLC cell must hold a number.
func Parse(r io.Reader) (models.Series, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, ErrNotUTF8
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	positions, err := locateColumns(header)
	if err != nil {
		return nil, err
	}
	width := len(header)

	var series models.Series
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(record) > width {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrMalformed, row, len(record), width)
		}

		var values [4]float64
		for i, column := range models.RequiredColumns {
			var cell string
			if positions[i] < len(record) {
				cell = record[positions[i]]
			}
			v, err := parseNumber(cell)
			if err != nil {
				return nil, &CellError{Row: row, Column: column, Value: cell}
			}
			values[i] = v
		}
		series = append(series, models.PriceBar{
			Index: row,
			Open:  values[0],
			High:  values[1],
			Low:   values[2],
			Close: values[3],
		})
	}

	if len(series) == 0 {
		return nil, ErrEmpty
	}
	return series, nil
}

// locateColumns maps each required column to its header position. The first
// occurrence wins when a name repeats.
func locateColumns(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	positions := make([]int, len(models.RequiredColumns))
	var missing []string
	for i, column := range models.RequiredColumns {
		pos, ok := index[column]
		if !ok {
			missing = append(missing, column)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return positions, nil
}

func parseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, ErrInvalidNumeric
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return 0, err
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) {
		return 0, ErrInvalidNumeric
	}
	return v, nil
}
