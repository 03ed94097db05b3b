package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/utility-usage-etl/internal/config"
	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

// Writer publishes derived series to a Kafka topic.
// It implements pipeline.SeriesExporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured export topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// ExportSeries serializes and publishes each point of a derived series in a
// single WriteMessages call. The series name keys every message so a compacted
// topic keeps one record per series and date.
func (w *Writer) ExportSeries(ctx context.Context, name string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(points))
	for i := range points {
		msg, err := serializeToMessage(name, points[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	w.logger.Info("exporting series to Kafka", "series", name, "points", len(points))
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// pointRecord is the wire form of one series point. Gap values encode as JSON
// null since NaN is not representable in JSON.
type pointRecord struct {
	Series string   `json:"series"`
	Date   string   `json:"date"`
	Value  *float64 `json:"value"`
}

// serializeToMessage marshals one series point into a Kafka message.
func serializeToMessage(name string, p domain.Point) (kafkago.Message, error) {
	rec := pointRecord{Series: name, Date: p.Date.Format(time.DateOnly)}
	if !math.IsNaN(p.Value) {
		v := p.Value
		rec.Value = &v
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize series point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(name + "/" + rec.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "series", Value: []byte(name)},
		},
	}, nil
}
