package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventSeriesSubmitted   = "SERIES_SUBMITTED"
	EventAnalysisCompleted = "ANALYSIS_COMPLETED"
)

// Analysis is one stored ADX run over an uploaded or submitted series
type Analysis struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	Period        int             `json:"period"`
	BarCount      int             `json:"bar_count"`
	ChartRows     int             `json:"chart_rows"`
	LatestADX     decimal.Decimal `json:"latest_adx"`
	LatestPlusDI  decimal.Decimal `json:"latest_plus_di"`
	LatestMinusDI decimal.Decimal `json:"latest_minus_di"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AnalysisEvent represents a Kafka event for a finished analysis
type AnalysisEvent struct {
	EventType string        `json:"event_type"`
	RequestID string        `json:"request_id,omitempty"`
	Analysis  *Analysis     `json:"analysis,omitempty"`
	Summary   *ChartSummary `json:"summary,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// SeriesEvent is an inbound request to analyze a series
type SeriesEvent struct {
	EventType string     `json:"event_type"`
	RequestID string     `json:"request_id"`
	Source    string     `json:"source"`
	Period    int        `json:"period,omitempty"`
	Bars      []EventBar `json:"bars"`
	Timestamp time.Time  `json:"timestamp"`
}

// EventBar carries OHLC values as strings so producers don't lose precision
type EventBar struct {
	Open  string `json:"open"`
	High  string `json:"high"`
	Low   string `json:"low"`
	Close string `json:"close"`
}
