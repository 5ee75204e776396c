package outbox

import (
	"context"
	"fmt"

	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/pkg/circuitbreaker"
	"github.com/fleetgo/dispatch-api/pkg/kafka"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// KafkaHandler publishes dispatch events to Kafka. Publishing goes through a
// circuit breaker so a broker outage sheds load quickly instead of tying up
// the processor in timeouts; rejected messages stay in the outbox and retry.
type KafkaHandler struct {
	logger   logger.Logger
	producer *kafka.Producer
	breaker  *circuitbreaker.CircuitBreaker
	topic    string
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, breaker *circuitbreaker.CircuitBreaker, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		breaker:  breaker,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage handles an outbox message by publishing it to Kafka
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	if !h.breaker.Allow() {
		h.logger.Warn("Kafka circuit open, deferring publish",
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("kafka circuit breaker is open")
	}

	// The aggregate ID (trip ID) keys the message so all events of one trip
	// land on the same partition, in order.
	key := message.AggregateID

	err := h.producer.SendMessage(ctx, h.topic, key, message.Payload)

	if err != nil {
		h.breaker.Failure()
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.breaker.Success()

	h.logger.Info("Published dispatch event",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	return nil
}
