// Package kafka publishes eventstream events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/eventstream"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "tomes.material.events"

// Writer is the subset of *kafkago.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// Writer overrides the kafka-go writer built from Brokers.
	Writer Writer

	Logger *zap.Logger
}

// Publisher writes events as JSON messages keyed by material id, so all
// events of a material land on the same partition.
type Publisher struct {
	writer Writer
	topic  string
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := c.Writer
	if w == nil {
		if len(c.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.Brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		}
	}

	logger.Info("kafka event publisher configured",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{writer: w, topic: topic, logger: logger}, nil
}

// PublishMaterialSynced writes event to the topic.
func (p *Publisher) PublishMaterialSynced(ctx context.Context, event *eventstream.MaterialSyncedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.MaterialID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to topic %q: %w", p.topic, err)
	}

	p.logger.Debug("published event",
		zap.String("topic", p.topic),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
