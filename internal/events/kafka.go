package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaEmitter publishes lifecycle events to a Kafka topic as JSON,
// keyed by signal_id so one signal's events stay in order within a
// partition. The writer runs async: WriteMessages queues and returns,
// delivery failures surface through the completion callback and are
// only logged.
type KafkaEmitter struct {
	writer *kafka.Writer
	topic  string
	log    zerolog.Logger
}

// KafkaConfig configures the emitter.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// NewKafkaEmitter creates a Kafka-backed emitter.
func NewKafkaEmitter(cfg KafkaConfig, log zerolog.Logger) (*KafkaEmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}

	e := &KafkaEmitter{topic: cfg.Topic, log: log}
	e.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Gzip,
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
		Completion:   e.onCompletion,
	}
	return e, nil
}

// Compile-time interface check.
var _ Emitter = (*KafkaEmitter)(nil)

// Emit queues the event for delivery.
func (e *KafkaEmitter) Emit(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   eventKey(ev),
		Value: value,
		Time:  time.Now(),
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("queue event: %w", err)
	}
	return nil
}

// Close flushes queued messages and closes the writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

func (e *KafkaEmitter) onCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	e.log.Warn().
		Err(err).
		Str("topic", e.topic).
		Int("messages", len(messages)).
		Msg("lifecycle event delivery failed")
}

func eventKey(ev Event) []byte {
	switch p := ev.Payload.(type) {
	case Published:
		return []byte(p.SignalID)
	case Triggered:
		return []byte(p.SignalID)
	case Closed:
		return []byte(p.SignalID)
	case Invalidated:
		return []byte(p.SignalID)
	default:
		return nil
	}
}
