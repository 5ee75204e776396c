package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Dispatch event types written to the outbox
const (
	EventDriverAssigned    = "driver_assigned"
	EventTripStatusChanged = "trip_status_changed"
	EventDeliveryConfirmed = "delivery_confirmed"
)

// OutboxMessage represents an event to be published from the outbox table.
// Dispatch services write these in the same transaction as the state change
// they describe, so the event stream can never disagree with the store.
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent represents the event data in the outbox message
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newTripOutboxMessage(eventType, tripID string, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: tripID,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:          eventType,
		Payload:            payload,
		AggregateType:      "trip",
		AggregateID:        tripID,
		CreatedAt:          GetCurrentTime(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewDriverAssignedEvent records a driver+vehicle being bound to an order
func NewDriverAssignedEvent(order *Order, trip *Trip, assignedBy string) (*OutboxMessage, error) {
	return newTripOutboxMessage(EventDriverAssigned, trip.ID, map[string]interface{}{
		"order_id":    order.ID,
		"trip_id":     trip.ID,
		"company_id":  trip.CompanyID,
		"driver_id":   trip.DriverID,
		"customer_id": trip.CustomerID,
		"vehicle_id":  trip.VehicleID.String,
		"assigned_by": assignedBy,
	})
}

// NewTripStatusChangedEvent records a trip status transition
func NewTripStatusChangedEvent(trip *Trip, oldStatus TripStatus) (*OutboxMessage, error) {
	return newTripOutboxMessage(EventTripStatusChanged, trip.ID, map[string]interface{}{
		"trip_id":    trip.ID,
		"order_id":   trip.OrderID,
		"driver_id":  trip.DriverID,
		"old_status": string(oldStatus),
		"new_status": string(trip.Status),
	})
}

// NewDeliveryConfirmedEvent records a successful scan-confirmed delivery
func NewDeliveryConfirmedEvent(trip *Trip) (*OutboxMessage, error) {
	return newTripOutboxMessage(EventDeliveryConfirmed, trip.ID, map[string]interface{}{
		"trip_id":     trip.ID,
		"order_id":    trip.OrderID,
		"driver_id":   trip.DriverID,
		"customer_id": trip.CustomerID,
		"amount":      trip.DeliverableAmount(),
	})
}
