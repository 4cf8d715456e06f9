package publisher

import (
	"RagDesk/backend/go/internal/database/kafka"
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
)

// TaskEventPublisher publishes task lifecycle events to Kafka.
// Events are keyed by task id so that one task's events stay in order.
type TaskEventPublisher struct {
	client *kafka.KafkaClient
	logger *logger.Logger
}

// NewTaskEventPublisher creates a new TaskEventPublisher on a shared Kafka client.
func NewTaskEventPublisher(client *kafka.KafkaClient, logger *logger.Logger) *TaskEventPublisher {
	return &TaskEventPublisher{
		client: client,
		logger: logger,
	}
}

// Publish sends an event to the task topic.
func (p *TaskEventPublisher) Publish(ctx context.Context, event models.TaskEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal task event for Kafka")
		return err
	}

	err = p.client.Writer.WriteMessages(ctx, kafkago.Message{
		Topic: p.client.Config.TaskTopic,
		Key:   []byte(event.TaskID),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.client.Config.TaskTopic}).Error("Failed to write task event to Kafka")
		return err
	}
	return nil
}

// Close closes the underlying Kafka client.
func (p *TaskEventPublisher) Close() error {
	return p.client.Close()
}
