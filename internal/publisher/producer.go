// Package publisher emits finished scans as events on a Kafka topic.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketScreener/internal/model"

	"github.com/segmentio/kafka-go"
)

// Event types written to the topic.
const (
	EventScanCompleted = "SCAN_COMPLETED"
	EventScanEmpty     = "SCAN_EMPTY"
	EventScanFailed    = "SCAN_FAILED"
	EventTickerFlagged = "TICKER_FLAGGED"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ScanEvent is the JSON payload of every message.
type ScanEvent struct {
	EventType string              `json:"event_type"`
	Status    model.ScanStatus    `json:"status,omitempty"`
	Symbol    string              `json:"symbol,omitempty"`
	Summary   *model.Summary      `json:"summary,omitempty"`
	Record    *model.ScreenRecord `json:"record,omitempty"`
	Scanned   int                 `json:"scanned"`
	Error     string              `json:"error,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Producer handles publishing scan events to Kafka.
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewProducerWithWriter(writer, topic)
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) Name() string { return "kafka:" + p.topic }

// Deliver publishes one scan summary event, followed by one TICKER_FLAGGED
// event per record outside the neutral band.
func (p *Producer) Deliver(ctx context.Context, res model.ScanResult) error {
	event := ScanEvent{
		Status:    res.Status,
		Scanned:   res.Scanned,
		Error:     res.Error,
		Timestamp: res.FinishedAt,
	}
	switch res.Status {
	case model.ScanCompleted:
		event.EventType = EventScanCompleted
	case model.ScanEmpty:
		event.EventType = EventScanEmpty
	default:
		event.EventType = EventScanFailed
	}

	msgs := make([]kafka.Message, 0, 1)
	if res.Report != nil {
		summary := res.Report.Summary
		event.Summary = &summary
	}
	first, err := encode("scan", event)
	if err != nil {
		return err
	}
	msgs = append(msgs, first)

	if res.Report != nil {
		for i := range res.Report.Records {
			rec := res.Report.Records[i]
			if rec.Status == model.Neutral {
				continue
			}
			msg, err := encode(rec.Symbol, ScanEvent{
				EventType: EventTickerFlagged,
				Status:    res.Status,
				Symbol:    rec.Symbol,
				Record:    &rec,
				Scanned:   res.Scanned,
				Timestamp: res.FinishedAt,
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}
	return nil
}

func encode(key string, event ScanEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{Key: []byte(key), Value: data}, nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
