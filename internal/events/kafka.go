package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// KafkaPublisher publishes events as JSON messages through a synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   zerolog.Logger
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, clientID string, logger zerolog.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info().Strs("brokers", brokers).Msg("kafka producer initialised")

	return NewKafkaPublisherWithProducer(producer, logger), nil
}

// NewProducerConfig returns the producer settings used for domain events.
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish sends event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: event.Topic,
		Value: sarama.ByteEncoder(data),
	}
	if event.Key != "" {
		msg.Key = sarama.StringEncoder(event.Key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", event.Topic).Str("key", event.Key).Msg("failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", event.Topic, err)
	}

	p.logger.Debug().
		Str("topic", event.Topic).
		Str("key", event.Key).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")

	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
