package ragclient

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the watcher needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventWatcher consumes task events published by the backend.
type EventWatcher struct {
	reader MessageReader
	logger *logger.Logger
}

// NewEventWatcher creates a watcher over reader, usually kafka.NewReader on the task topic.
func NewEventWatcher(reader MessageReader, log *logger.Logger) *EventWatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &EventWatcher{reader: reader, logger: log}
}

// Watch delivers events to handler until ctx ends. Undecodable messages are logged and skipped.
// Every message is committed once handled, whatever the handler returned.
func (w *EventWatcher) Watch(ctx context.Context, handler func(models.TaskEvent) error) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Stopping task event watcher...")
				return nil
			}
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching task event from Kafka")
			return fmt.Errorf("fetch task event: %w", err)
		}

		var event models.TaskEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Warn("Skipping malformed task event")
		} else if err := handler(event); err != nil {
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithField("task_id", event.TaskID).Error("Error handling task event")
		}

		if err := w.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
		}
	}
}

// Close closes the underlying reader.
func (w *EventWatcher) Close() error {
	return w.reader.Close()
}

// FilterTask wraps handler so it only sees events of taskID. An empty taskID passes everything.
func FilterTask(taskID string, handler func(models.TaskEvent) error) func(models.TaskEvent) error {
	return func(e models.TaskEvent) error {
		if taskID != "" && e.TaskID != taskID {
			return nil
		}
		return handler(e)
	}
}
