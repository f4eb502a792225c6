package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/adx-service/internal/analysis"
	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/pkg/logger"
)

// SeriesAnalyzer runs submitted series through the ADX pipeline
type SeriesAnalyzer interface {
	AnalyzeSeries(ctx context.Context, source string, series models.Series, opts ...analysis.Option) (*analysis.Result, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer handles SERIES_SUBMITTED events from Kafka
type Consumer struct {
	reader   messageReader
	analyzer SeriesAnalyzer
}

// NewConsumer creates a new Kafka consumer for series submissions
func NewConsumer(brokers []string, topic, groupID string, analyzer SeriesAnalyzer) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		analyzer: analyzer,
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	logger.Info("Starting Kafka consumer", logger.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				logger.Error("Error reading message", logger.ErrorField(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				logger.Warn("Skipping message",
					logger.Int("partition", msg.Partition),
					logger.Int64("offset", msg.Offset),
					logger.ErrorField(err),
				)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.SeriesEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal series event: %w", err)
	}

	if event.EventType != models.EventSeriesSubmitted {
		logger.Debug("Ignoring event type", logger.String("event_type", event.EventType))
		return nil
	}

	series, err := convertEventToSeries(event)
	if err != nil {
		return fmt.Errorf("request %s: %w", event.RequestID, err)
	}

	source := event.Source
	if source == "" {
		source = analysis.SourceKafka
	}

	res, err := c.analyzer.AnalyzeSeries(ctx, source, series,
		analysis.WithPeriod(event.Period),
		analysis.WithRequestID(event.RequestID),
	)
	if errors.Is(err, analysis.ErrInsufficientData) {
		logger.Info("Series too short for ADX",
			logger.String("request_id", event.RequestID),
			logger.Int("bars", len(series)),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("request %s: failed to analyze series: %w", event.RequestID, err)
	}

	logger.Info("Analyzed submitted series",
		logger.String("request_id", event.RequestID),
		logger.String("analysis_id", res.Analysis.ID),
		logger.Float64("latest_adx", res.Summary.LatestADX),
	)
	return nil
}

// convertEventToSeries parses the string OHLC values of an event
func convertEventToSeries(event models.SeriesEvent) (models.Series, error) {
	series := make(models.Series, len(event.Bars))
	for i, b := range event.Bars {
		values := [4]string{b.Open, b.High, b.Low, b.Close}
		var parsed [4]float64
		for j, v := range values {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("bar %d: invalid %s value %q: %w", i, models.RequiredColumns[j], v, err)
			}
			f := d.InexactFloat64()
			if math.IsInf(f, 0) {
				return nil, fmt.Errorf("bar %d: %s value %q is out of range", i, models.RequiredColumns[j], v)
			}
			parsed[j] = f
		}
		series[i] = models.PriceBar{
			Index: i,
			Open:  parsed[0],
			High:  parsed[1],
			Low:   parsed[2],
			Close: parsed[3],
		}
	}
	return series, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
