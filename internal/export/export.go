// Package export writes derived tables as spreadsheets.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/xuri/excelize/v2"

	"github.com/trogers1052/adx-service/internal/models"
)

const (
	// SheetName is the worksheet holding the table
	SheetName = "ADX Output"
	// XLSXFilename is the suggested download name
	XLSXFilename = "adx_output.xlsx"
	// CSVFilename is the suggested download name for CSV exports
	CSVFilename = "adx_output.csv"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	CSVContentType  = "text/csv; charset=utf-8"
)

// Format names an export encoding
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for an export format other than xlsx or csv
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a query value to a Format. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return CSVContentType
	}
	return XLSXContentType
}

// Filename returns the attachment name for the format
func (f Format) Filename() string {
	if f == FormatCSV {
		return CSVFilename
	}
	return XLSXFilename
}

// Write encodes snap in the given format
func Write(w io.Writer, f Format, snap *models.TableSnapshot) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, snap)
	case FormatCSV:
		return WriteCSV(w, snap)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteXLSX writes the table as a single-sheet workbook. Undefined cells
// are left empty.
func WriteXLSX(w io.Writer, snap *models.TableSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(snap.Columns))
	for i, c := range snap.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, cells := range snap.Data {
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.Float64
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the table with a header row. Undefined cells are empty.
func WriteCSV(w io.Writer, snap *models.TableSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(snap.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(snap.Columns))
	for r, cells := range snap.Data {
		for i, c := range cells {
			record[i] = formatCell(c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(c null.Float) string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Float64, 'f', -1, 64)
}
