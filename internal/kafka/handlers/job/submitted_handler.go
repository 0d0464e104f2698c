package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/aliskhannn/deck-generator/internal/model"
)

type service interface {
	ProcessTask(ctx context.Context, task model.Task) error
}

// SubmittedHandler processes generation tasks dequeued from Kafka.
type SubmittedHandler struct {
	service service
}

// NewSubmittedHandler creates a handler over the deck service.
func NewSubmittedHandler(s service) *SubmittedHandler {
	return &SubmittedHandler{service: s}
}

// Handle decodes a task message and runs it through the service.
func (h *SubmittedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var task model.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return fmt.Errorf("unmarshal task: %w", err)
	}

	if err := h.service.ProcessTask(ctx, task); err != nil {
		return fmt.Errorf("process task: %w", err)
	}

	return nil
}
