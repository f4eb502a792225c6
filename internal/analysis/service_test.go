package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/adx-service/internal/csvinput"
	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/internal/session"
)

// handCSV verifies by hand with period 2
const handCSV = `Open,High,Low,Close
9,10,8,9
10,11,9,10.5
11,12,10,11
10.25,11.5,9,9.5
8.5,10,7,8
9.25,10.5,8,10
`

// MockRepository records persisted analyses
type MockRepository struct {
	analyses []*models.Analysis
	rows     map[string][]models.ADXRow
	err      error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{rows: make(map[string][]models.ADXRow)}
}

func (m *MockRepository) CreateAnalysis(_ context.Context, a *models.Analysis, rows []models.ADXRow) error {
	if m.err != nil {
		return m.err
	}
	m.analyses = append(m.analyses, a)
	m.rows[a.ID] = rows
	return nil
}

// MockPublisher records published events
type MockPublisher struct {
	requestIDs []string
	summaries  []*models.ChartSummary
	err        error
}

func (m *MockPublisher) PublishAnalysisCompleted(_ context.Context, requestID string, _ *models.Analysis, summary *models.ChartSummary) error {
	if m.err != nil {
		return m.err
	}
	m.requestIDs = append(m.requestIDs, requestID)
	m.summaries = append(m.summaries, summary)
	return nil
}

func TestAnalyzeHandSeries(t *testing.T) {
	repo := NewMockRepository()
	pub := &MockPublisher{}
	svc := NewService(14, session.NewMemoryStore(0), repo, pub)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Analyze(context.Background(), SourceUpload, strings.NewReader(handCSV), WithPeriod(2), WithRequestID("req-1"))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Table.Len())
	require.Len(t, res.Chart, 2)
	assert.Equal(t, 1, res.Chart[0].Label)
	assert.Equal(t, 50.0, res.Chart[0].ADX)
	assert.Equal(t, 37.5, res.Chart[1].ADX)
	assert.Equal(t, 14.6341, res.Chart[1].PlusDI)
	assert.Equal(t, 24.3902, res.Chart[1].MinusDI)

	assert.Equal(t, models.ChartSummary{
		LatestADX:     37.5,
		LatestPlusDI:  14.63,
		LatestMinusDI: 24.39,
		TotalRows:     2,
	}, res.Summary)

	a := res.Analysis
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, SourceUpload, a.Source)
	assert.Equal(t, 2, a.Period)
	assert.Equal(t, 6, a.BarCount)
	assert.Equal(t, 2, a.ChartRows)
	assert.Equal(t, "14.63", a.LatestPlusDI.String())
	assert.Equal(t, fixed, a.CreatedAt)

	assert.True(t, res.Persisted)
	require.Len(t, repo.analyses, 1)
	assert.Len(t, repo.rows[a.ID], 6)

	require.Len(t, pub.requestIDs, 1)
	assert.Equal(t, "req-1", pub.requestIDs[0])
}

func TestAnalyzeInsufficientData(t *testing.T) {
	repo := NewMockRepository()
	pub := &MockPublisher{}
	svc := NewService(14, nil, repo, pub)

	_, err := svc.Analyze(context.Background(), SourceUpload, strings.NewReader(handCSV))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, repo.analyses, "nothing is persisted without a chart")
	assert.Empty(t, pub.requestIDs)
}

func TestAnalyzePassesParseErrors(t *testing.T) {
	svc := NewService(14, nil, nil, nil)

	_, err := svc.Analyze(context.Background(), SourceAPI, strings.NewReader("High,Low\n1,2\n"))
	var missing *csvinput.MissingColumnsError
	assert.True(t, errors.As(err, &missing))

	_, err = svc.Analyze(context.Background(), SourceAPI, strings.NewReader("Open,High,Low,Close\n1,x,1,1\n"))
	assert.ErrorIs(t, err, csvinput.ErrInvalidNumeric)
}

// overflowBars is a 40 bar series whose bar 35 spans the whole float64 range
func overflowBars() models.Series {
	series := make(models.Series, 40)
	for i := range series {
		series[i] = models.PriceBar{Index: i, Open: 10, High: 11, Low: 9, Close: 10}
	}
	series[35].High = 1.7e308
	series[35].Low = -1.7e308
	return series
}

func TestAnalyzeSeriesOverflow(t *testing.T) {
	repo := NewMockRepository()
	pub := &MockPublisher{}
	svc := NewService(14, nil, repo, pub)

	var err error
	require.NotPanics(t, func() {
		_, err = svc.AnalyzeSeries(context.Background(), SourceKafka, overflowBars())
	})
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, "non_finite", Reason(err))
	assert.Empty(t, repo.analyses)
	assert.Empty(t, pub.requestIDs)
}

func TestAnalyzeOverflowCSV(t *testing.T) {
	var b strings.Builder
	b.WriteString("Open,High,Low,Close\n")
	for _, bar := range overflowBars() {
		fmt.Fprintf(&b, "%g,%g,%g,%g\n", bar.Open, bar.High, bar.Low, bar.Close)
	}
	svc := NewService(14, nil, nil, nil)

	var err error
	require.NotPanics(t, func() {
		_, err = svc.Analyze(context.Background(), SourceUpload, strings.NewReader(b.String()))
	})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestAnalyzeSeriesInvalidPeriod(t *testing.T) {
	svc := NewService(14, nil, nil, nil)
	_, err := svc.AnalyzeSeries(context.Background(), SourceKafka, models.Series{}, WithPeriod(-1))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestAnalyzeSeriesCancelled(t *testing.T) {
	svc := NewService(2, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeSeries(ctx, SourceKafka, models.Series{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollaboratorFailuresDoNotFailAnalysis(t *testing.T) {
	repo := NewMockRepository()
	repo.err = errors.New("db down")
	pub := &MockPublisher{err: errors.New("broker down")}
	svc := NewService(2, nil, repo, pub)

	res, err := svc.Analyze(context.Background(), SourceAPI, strings.NewReader(handCSV))
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Len(t, res.Chart, 2)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(2, session.NewMemoryStore(time.Hour), nil, nil)

	_, err := svc.LoadSession(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	res, err := svc.Analyze(ctx, SourceUpload, strings.NewReader(handCSV))
	require.NoError(t, err)
	require.NoError(t, svc.SaveSession(ctx, "s1", res))

	snap, err := svc.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ADXColumns, snap.Columns)
	require.Len(t, snap.Data, 6)
	assert.False(t, snap.Data[0][7].Valid, "TR14 at row 0 stays undefined")
	assert.Equal(t, 37.5, snap.Data[5][15].Float64)
}

func TestSessionWithoutStore(t *testing.T) {
	svc := NewService(2, nil, nil, nil)
	_, err := svc.LoadSession(context.Background(), "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "missing_columns", Reason(&csvinput.MissingColumnsError{Columns: []string{"Open"}}))
	assert.Equal(t, "invalid_numeric", Reason(&csvinput.CellError{Row: 1, Column: "Low"}))
	assert.Equal(t, "insufficient_data", Reason(csvinput.ErrEmpty))
	assert.Equal(t, "insufficient_data", Reason(ErrInsufficientData))
	assert.Equal(t, "malformed", Reason(csvinput.ErrMalformed))
}
