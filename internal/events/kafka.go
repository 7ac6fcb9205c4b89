package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes envelopes to one topic, keyed by correlation id so
// events of the same order stay in one partition.
type KafkaPublisher struct {
	w        messageWriter
	producer string
}

// KafkaConfig holds publisher settings.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Producer     string
	WriteTimeout time.Duration
}

// NewKafkaPublisher creates an asynchronous publisher. Delivery errors are
// logged from the writer's completion callback.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Str("topic", cfg.Topic).Msg("Kafka delivery failed")
			}
		},
	}
	return newKafkaPublisher(w, cfg.Producer)
}

func newKafkaPublisher(w messageWriter, producer string) *KafkaPublisher {
	return &KafkaPublisher{w: w, producer: producer}
}

// Publish wraps payload in an envelope and hands it to the writer.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, correlationID string, payload any) {
	env, err := NewEnvelope(p.producer, eventType, correlationID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to build event")
		return
	}

	value, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to encode event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(correlationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish event")
	}
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)
