package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/segmentio/kafka-go"
)

const readRetryDelay = time.Second

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a group consumer over all workflow topics
func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start consumes until ctx is cancelled, handing each decoded event to handler.
func (c *Consumer) Start(ctx context.Context, handler func(models.WorkflowEvent)) {
	c.logger.Info("KAFKA", "Workflow event consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.logger.Info("KAFKA", "Workflow event consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		var event models.WorkflowEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message on %s: %v", msg.Topic, err))
			continue
		}

		c.logger.LogKafka("RECEIVE", msg.Topic, string(event.Type))
		handler(event)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
