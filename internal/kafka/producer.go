package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coa-registry/internal/config"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
	Logger *logger.Logger
}

// NewProducer writes workflow events to the topic matching their type prefix.
func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// TopicFor routes request.*, certificate.* and artist.* events to their topics.
func (p *Producer) TopicFor(eventType models.WorkflowEventType) string {
	prefix, _, _ := strings.Cut(string(eventType), ".")
	switch prefix {
	case "certificate":
		return p.Topics.Certificates
	case "artist":
		return p.Topics.Artists
	default:
		return p.Topics.Requests
	}
}

// Publish streams a workflow event to Kafka, keyed by request so events for
// one request stay ordered.
func (p *Producer) Publish(ctx context.Context, event models.WorkflowEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := event.RequestID
	if key == "" {
		key = event.QRID
	}
	topic := p.TopicFor(event.Type)

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, string(event.Type))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
