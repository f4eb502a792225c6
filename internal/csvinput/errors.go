package csvinput

import (
	"errors"
	"strings"
)

var (
	// ErrNotUTF8 is returned when the upload is not valid UTF-8 text
	ErrNotUTF8 = errors.New("csv input is not valid utf-8")
	// ErrNoHeader is returned for an input with no header row at all
	ErrNoHeader = errors.New("csv input has no header row")
	// ErrEmpty is returned when the header is followed by no data rows
	ErrEmpty = errors.New("csv input has no data rows")
	// ErrInvalidNumeric is returned when an OHLC cell is blank or not a number
	ErrInvalidNumeric = errors.New("csv has invalid numeric values in Open/High/Low/Close")
	// ErrMalformed wraps low-level CSV syntax errors
	ErrMalformed = errors.New("malformed csv")
)

// MissingColumnsError lists the required columns absent from the header,
// in the order they are required.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}
