// Package analysis ties CSV ingestion, the ADX computation and the optional
// cache, persistence and event collaborators together.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/adx-service/internal/adx"
	"github.com/trogers1052/adx-service/internal/csvinput"
	"github.com/trogers1052/adx-service/internal/metrics"
	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/internal/session"
	"github.com/trogers1052/adx-service/pkg/logger"
)

// Sources recorded on stored analyses
const (
	SourceUpload = "upload"
	SourceAPI    = "api"
	SourceKafka  = "kafka"
	SourceCLI    = "cli"
)

const (
	summaryPlaces = 2
	chartPlaces   = 4
)

var (
	// ErrInsufficientData is returned when no row has ADX, +DI and -DI defined
	ErrInsufficientData = errors.New("not enough rows to calculate ADX")
	// ErrInvalidPeriod is returned for a requested period below 1
	ErrInvalidPeriod = errors.New("period must be at least 1")
	// ErrNonFinite is returned when the prices overflow the indicator math
	ErrNonFinite = errors.New("ADX values are not finite")
)

// Repository persists finished analyses
type Repository interface {
	CreateAnalysis(ctx context.Context, a *models.Analysis, rows []models.ADXRow) error
}

// Publisher announces finished analyses
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, requestID string, a *models.Analysis, summary *models.ChartSummary) error
}

// Result is the outcome of one analysis
type Result struct {
	Analysis *models.Analysis
	Table    *adx.Table
	// Chart holds the chartable rows with values rounded to 4 places
	Chart []models.ChartPoint
	// Summary holds the latest values rounded to 2 places
	Summary   models.ChartSummary
	Persisted bool
}

// Snapshot returns the full table in cacheable form
func (r *Result) Snapshot() *models.TableSnapshot {
	return r.Table.Snapshot()
}

// Service runs analyses. Nil collaborators are skipped.
type Service struct {
	period    int
	store     session.Store
	repo      Repository
	publisher Publisher
	now       func() time.Time
}

// NewService creates a Service computing with the given default period
func NewService(period int, store session.Store, repo Repository, publisher Publisher) *Service {
	return &Service{
		period:    period,
		store:     store,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// Period returns the default smoothing window
func (s *Service) Period() int {
	return s.period
}

// HasRepository reports whether analyses are persisted
func (s *Service) HasRepository() bool {
	return s.repo != nil
}

type options struct {
	period    int
	requestID string
}

// Option adjusts a single analysis
type Option func(*options)

// WithPeriod overrides the default period; zero keeps the default
func WithPeriod(period int) Option {
	return func(o *options) {
		if period != 0 {
			o.period = period
		}
	}
}

// WithRequestID tags published events with the caller's request id
func WithRequestID(id string) Option {
	return func(o *options) {
		o.requestID = id
	}
}

// Analyze parses r as CSV and analyzes the resulting series
func (s *Service) Analyze(ctx context.Context, source string, r io.Reader, opts ...Option) (*Result, error) {
	series, err := csvinput.Parse(r)
	if err != nil {
		metrics.ObserveFailure(source, Reason(err))
		return nil, err
	}
	return s.AnalyzeSeries(ctx, source, series, opts...)
}

// AnalyzeSeries computes the ADX table for series, persists and publishes it.
// Nothing is stored when the series is too short to chart.
func (s *Service) AnalyzeSeries(ctx context.Context, source string, series models.Series, opts ...Option) (*Result, error) {
	o := options{period: s.period}
	for _, opt := range opts {
		opt(&o)
	}
	if o.period < 1 {
		metrics.ObserveFailure(source, Reason(ErrInvalidPeriod))
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPeriod, o.period)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	table := adx.NewCalculator(o.period).Compute(series)
	elapsed := time.Since(start)

	points := table.Chartable()
	if len(points) == 0 {
		metrics.ObserveFailure(source, Reason(ErrInsufficientData))
		return nil, ErrInsufficientData
	}
	if row, ok := firstNonFinite(table.Rows()); ok {
		metrics.ObserveFailure(source, Reason(ErrNonFinite))
		return nil, fmt.Errorf("%w at row %d", ErrNonFinite, row)
	}
	metrics.ObserveAnalysis(source, len(series), elapsed.Seconds())

	last := points[len(points)-1]
	summary := models.ChartSummary{
		LatestADX:     round(last.ADX, summaryPlaces),
		LatestPlusDI:  round(last.PlusDI, summaryPlaces),
		LatestMinusDI: round(last.MinusDI, summaryPlaces),
		TotalRows:     len(points),
	}

	chart := make([]models.ChartPoint, len(points))
	for i, p := range points {
		chart[i] = models.ChartPoint{
			Label:   p.Label,
			ADX:     round(p.ADX, chartPlaces),
			PlusDI:  round(p.PlusDI, chartPlaces),
			MinusDI: round(p.MinusDI, chartPlaces),
		}
	}

	analysis := &models.Analysis{
		ID:            uuid.NewString(),
		Source:        source,
		Period:        o.period,
		BarCount:      len(series),
		ChartRows:     len(points),
		LatestADX:     decimal.NewFromFloat(last.ADX).Round(summaryPlaces),
		LatestPlusDI:  decimal.NewFromFloat(last.PlusDI).Round(summaryPlaces),
		LatestMinusDI: decimal.NewFromFloat(last.MinusDI).Round(summaryPlaces),
		CreatedAt:     s.now().UTC(),
	}

	result := &Result{
		Analysis: analysis,
		Table:    table,
		Chart:    chart,
		Summary:  summary,
	}

	logger.Info("ADX analysis completed",
		logger.String("analysis_id", analysis.ID),
		logger.String("source", source),
		logger.Int("bars", len(series)),
		logger.Int("period", o.period),
		logger.Int("chart_rows", len(points)),
		logger.Duration("elapsed", elapsed),
	)

	if s.repo != nil {
		if err := s.repo.CreateAnalysis(ctx, analysis, table.Rows()); err != nil {
			logger.Error("Failed to persist analysis",
				logger.String("analysis_id", analysis.ID),
				logger.ErrorField(err),
			)
		} else {
			result.Persisted = true
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAnalysisCompleted(ctx, o.requestID, analysis, &summary); err != nil {
			logger.Warn("Failed to publish analysis event",
				logger.String("analysis_id", analysis.ID),
				logger.ErrorField(err),
			)
		}
	}

	return result, nil
}

// SaveSession caches the full table of res under a session id
func (s *Service) SaveSession(ctx context.Context, sessionID string, res *Result) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, sessionID, res.Snapshot()); err != nil {
		return fmt.Errorf("failed to cache result for session: %w", err)
	}
	return nil
}

// LoadSession returns the table cached for a session, or session.ErrNotFound
func (s *Service) LoadSession(ctx context.Context, sessionID string) (*models.TableSnapshot, error) {
	if s.store == nil {
		return nil, session.ErrNotFound
	}
	return s.store.Load(ctx, sessionID)
}

// Reason maps an analysis error to a short metrics label
func Reason(err error) string {
	var missing *csvinput.MissingColumnsError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missing):
		return "missing_columns"
	case errors.Is(err, csvinput.ErrInvalidNumeric):
		return "invalid_numeric"
	case errors.Is(err, csvinput.ErrEmpty), errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, csvinput.ErrNotUTF8):
		return "not_utf8"
	case errors.Is(err, ErrNonFinite):
		return "non_finite"
	default:
		return "malformed"
	}
}

// firstNonFinite returns the index of the first row holding NaN or Inf
func firstNonFinite(rows []models.ADXRow) (int, bool) {
	for _, r := range rows {
		for _, v := range r.Values() {
			if v.Valid && (math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0)) {
				return r.Index, true
			}
		}
	}
	return 0, false
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
