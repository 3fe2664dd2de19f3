// Package kafka publishes verification summary rows to a Kafka topic for
// downstream dashboards.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Writer produces summary messages to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes rows and writes them in a single WriteMessages call.
// Rows sharing a key land on the same partition, so consumers see the runs
// of one (system, threshold, statistic, lead time) in order.
func (w *Writer) Publish(ctx context.Context, rows []domain.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d summaries: %w", len(msgs), err)
	}
	w.logger.Debug("summaries published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// summaryMessage is the wire form of a SummaryRow. JSON has no NaN, so
// undefined values are encoded as null.
type summaryMessage struct {
	RunID        string    `json:"run_id"`
	Accumulation int       `json:"accumulation"`
	System       string    `json:"system"`
	Threshold    float64   `json:"threshold"`
	Statistic    string    `json:"statistic"`
	LeadTime     int       `json:"lead_time"`
	ValidDays    int       `json:"valid_days"`
	Original     *float64  `json:"original"`
	Lower        *float64  `json:"ci_lower"`
	Upper        *float64  `json:"ci_upper"`
	Mean         *float64  `json:"bootstrap_mean"`
	StdDev       *float64  `json:"bootstrap_stddev"`
	Level        float64   `json:"confidence_level"`
	Repetitions  int       `json:"repetitions"`
	ComputedAt   time.Time `json:"computed_at"`
}

// MessageKey is <system>|<thr>|<stat>|<SSS>.
func MessageKey(r domain.SummaryRow) string {
	return fmt.Sprintf("%s|%s|%s|%03d", r.System, domain.FormatThreshold(r.Threshold), r.Statistic, r.LeadTime)
}

// serializeToMessage marshals a SummaryRow into a Kafka message.
func serializeToMessage(r domain.SummaryRow) (kafkago.Message, error) {
	data, err := json.Marshal(summaryMessage{
		RunID:        r.RunID,
		Accumulation: r.Accumulation,
		System:       r.System,
		Threshold:    r.Threshold,
		Statistic:    string(r.Statistic),
		LeadTime:     r.LeadTime,
		ValidDays:    r.ValidDays,
		Original:     finite(r.Original),
		Lower:        finite(r.Lower),
		Upper:        finite(r.Upper),
		Mean:         finite(r.Mean),
		StdDev:       finite(r.StdDev),
		Level:        r.Level,
		Repetitions:  r.Repetitions,
		ComputedAt:   r.ComputedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "statistic", Value: []byte(r.Statistic)},
			{Key: "computed_at", Value: []byte(r.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeMessage is the inverse of the writer's encoding; null values become NaN.
func DecodeMessage(msg kafkago.Message) (domain.SummaryRow, error) {
	var m summaryMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return domain.SummaryRow{}, fmt.Errorf("decode summary message: %w", err)
	}
	return domain.SummaryRow{
		RunID:        m.RunID,
		Accumulation: m.Accumulation,
		System:       m.System,
		Threshold:    m.Threshold,
		Statistic:    domain.Statistic(m.Statistic),
		LeadTime:     m.LeadTime,
		ValidDays:    m.ValidDays,
		Original:     orNaN(m.Original),
		Lower:        orNaN(m.Lower),
		Upper:        orNaN(m.Upper),
		Mean:         orNaN(m.Mean),
		StdDev:       orNaN(m.StdDev),
		Level:        m.Level,
		Repetitions:  m.Repetitions,
		ComputedAt:   m.ComputedAt,
	}, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
