package api

import (
	"errors"
	"net/http"

	"github.com/trogers1052/adx-service/internal/analysis"
	"github.com/trogers1052/adx-service/internal/csvinput"
)

// Messages shown on the upload page
const (
	msgNoFile           = "Please upload a CSV file."
	msgInvalidNumeric   = "CSV has invalid numeric values in Open/High/Low/Close."
	msgInsufficientData = "Not enough rows to calculate ADX. Please upload more data."
	msgUnprocessable    = "Unable to process this file. Please upload a valid CSV."
	msgNoOutput         = "No output available yet. Please upload a CSV first."
)

// errNoFile marks an upload request without a csv_file part
var errNoFile = errors.New("no file uploaded")

// userMessage maps an analysis error to the text shown to the user
func userMessage(err error) string {
	var missing *csvinput.MissingColumnsError
	switch {
	case errors.Is(err, errNoFile):
		return msgNoFile
	case errors.As(err, &missing):
		return missing.Error()
	case errors.Is(err, csvinput.ErrInvalidNumeric):
		return msgInvalidNumeric
	case errors.Is(err, analysis.ErrInsufficientData), errors.Is(err, csvinput.ErrEmpty):
		return msgInsufficientData
	default:
		return msgUnprocessable
	}
}

// statusFor maps an analysis error to a JSON API status code
func statusFor(err error) int {
	var missing *csvinput.MissingColumnsError
	switch {
	case errors.Is(err, errNoFile),
		errors.As(err, &missing),
		errors.Is(err, csvinput.ErrInvalidNumeric),
		errors.Is(err, analysis.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrInsufficientData), errors.Is(err, csvinput.ErrEmpty):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
