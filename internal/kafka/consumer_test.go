package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/adx-service/internal/analysis"
	"github.com/trogers1052/adx-service/internal/models"
)

type analyzeCall struct {
	source string
	series models.Series
}

type mockAnalyzer struct {
	mu     sync.Mutex
	calls  []analyzeCall
	err    error
	called chan struct{}
}

func (m *mockAnalyzer) AnalyzeSeries(_ context.Context, source string, series models.Series, _ ...analysis.Option) (*analysis.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, analyzeCall{source: source, series: series})
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &analysis.Result{Analysis: &models.Analysis{ID: "a1"}}, nil
}

func (m *mockAnalyzer) Calls() []analyzeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]analyzeCall(nil), m.calls...)
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func seriesPayload(t *testing.T, eventType string, bars []models.EventBar) []byte {
	t.Helper()
	payload, err := json.Marshal(models.SeriesEvent{
		EventType: eventType,
		RequestID: "req-1",
		Source:    "backtester",
		Period:    2,
		Bars:      bars,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return payload
}

func TestConsumer_processMessage_convertsBars(t *testing.T) {
	analyzer := &mockAnalyzer{}
	consumer := &Consumer{analyzer: analyzer}

	bars := []models.EventBar{
		{Open: "9", High: "10", Low: "8", Close: "9"},
		{Open: "10", High: "11.25", Low: "9", Close: "10.5"},
	}
	err := consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)})
	require.NoError(t, err)

	calls := analyzer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "backtester", calls[0].source)
	require.Len(t, calls[0].series, 2)
	assert.Equal(t, 1, calls[0].series[1].Index)
	assert.Equal(t, 11.25, calls[0].series[1].High)
}

func TestConsumer_processMessage_ignoresOtherEventTypes(t *testing.T) {
	analyzer := &mockAnalyzer{}
	consumer := &Consumer{analyzer: analyzer}

	err := consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, "SOMETHING_ELSE", nil)})
	require.NoError(t, err)
	assert.Empty(t, analyzer.Calls())
}

func TestConsumer_processMessage_rejectsMalformed(t *testing.T) {
	analyzer := &mockAnalyzer{}
	consumer := &Consumer{analyzer: analyzer}

	err := consumer.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	bars := []models.EventBar{{Open: "1", High: "abc", Low: "1", Close: "1"}}
	err = consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid High value")
	assert.Empty(t, analyzer.Calls())
}

func TestConsumer_processMessage_rejectsOutOfRange(t *testing.T) {
	analyzer := &mockAnalyzer{}
	consumer := &Consumer{analyzer: analyzer}

	bars := []models.EventBar{{Open: "1", High: "1e400", Low: "1", Close: "1"}}
	err := consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Empty(t, analyzer.Calls())
}

func TestConsumer_processMessage_overflowingSeriesIsSkipped(t *testing.T) {
	consumer := &Consumer{analyzer: analysis.NewService(14, nil, nil, nil)}

	bars := make([]models.EventBar, 40)
	for i := range bars {
		bars[i] = models.EventBar{Open: "10", High: "11", Low: "9", Close: "10"}
	}
	bars[35].High = "1.7e308"
	bars[35].Low = "-1.7e308"
	payload := seriesPayload(t, models.EventSeriesSubmitted, bars)

	var err error
	require.NotPanics(t, func() {
		err = consumer.processMessage(context.Background(), kafka.Message{Value: payload})
	})
	assert.ErrorIs(t, err, analysis.ErrNonFinite)
}

func TestConsumer_processMessage_insufficientDataIsNotAnError(t *testing.T) {
	analyzer := &mockAnalyzer{err: analysis.ErrInsufficientData}
	consumer := &Consumer{analyzer: analyzer}

	bars := []models.EventBar{{Open: "1", High: "2", Low: "1", Close: "1"}}
	err := consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)})
	assert.NoError(t, err)
}

func TestConsumer_processMessage_propagatesAnalyzerErrors(t *testing.T) {
	analyzer := &mockAnalyzer{err: errors.New("boom")}
	consumer := &Consumer{analyzer: analyzer}

	bars := []models.EventBar{{Open: "1", High: "2", Low: "1", Close: "1"}}
	err := consumer.processMessage(context.Background(), kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)})
	assert.Error(t, err)
}

func TestConsumer_Start_consumesUntilCancelled(t *testing.T) {
	analyzer := &mockAnalyzer{called: make(chan struct{}, 1)}
	reader := newMockReader("adx-series", 2)
	consumer := &Consumer{reader: reader, analyzer: analyzer}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: []byte("garbage")}
	bars := []models.EventBar{{Open: "1", High: "2", Low: "1", Close: "1.5"}}
	reader.msgs <- kafka.Message{Value: seriesPayload(t, models.EventSeriesSubmitted, bars)}

	select {
	case <-analyzer.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for series to be analyzed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	assert.Len(t, analyzer.Calls(), 1, "malformed messages are skipped")
	reader.mu.Lock()
	assert.Equal(t, 1, reader.closeCalls)
	reader.mu.Unlock()
}
