package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// DispatchEventsHandler consumes the dispatch event stream back from Kafka.
// Downstream consumers (billing, analytics, partner feeds) hang off the same
// topic; this handler is the in-process one and keeps the audit trail.
type DispatchEventsHandler struct {
	logger logger.Logger
}

// NewDispatchEventsHandler creates a new DispatchEventsHandler
func NewDispatchEventsHandler(logger logger.Logger) *DispatchEventsHandler {
	return &DispatchEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming dispatch events from Kafka messages
func (h *DispatchEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling dispatch event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)

	switch event.EventType {
	case models.EventDriverAssigned:
		return h.handleDriverAssigned(event)
	case models.EventTripStatusChanged:
		return h.handleTripStatusChanged(event)
	case models.EventDeliveryConfirmed:
		return h.handleDeliveryConfirmed(event)
	default:
		h.logger.Warn("unknown event type", "eventType", event.EventType)
		return nil
	}
}

func (h *DispatchEventsHandler) handleDriverAssigned(event models.OutboxMessageEvent) error {
	h.logger.Info("Processing driver assigned event",
		"tripID", event.AggregateID,
		"eventID", event.EventID,
	)

	return nil
}

func (h *DispatchEventsHandler) handleTripStatusChanged(event models.OutboxMessageEvent) error {
	h.logger.Info("Processing trip status changed event",
		"tripID", event.AggregateID,
		"eventID", event.EventID,
	)

	return nil
}

func (h *DispatchEventsHandler) handleDeliveryConfirmed(event models.OutboxMessageEvent) error {
	h.logger.Info("Processing delivery confirmed event",
		"tripID", event.AggregateID,
		"eventID", event.EventID,
	)

	return nil
}
