package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func outboxTrip() *Trip {
	return &Trip{
		ID:          "trp_1",
		CompanyID:   "cmp_1",
		OrderID:     "ord_1",
		DriverID:    "usr_d1",
		CustomerID:  "usr_customer",
		Status:      TripStatusAssigned,
		TotalAmount: 20,
		DeliveryFee: 5,
	}
}

func TestNewDriverAssignedEvent(t *testing.T) {
	order := &Order{ID: "ord_1", CompanyID: "cmp_1", CustomerID: "usr_customer"}

	msg, err := NewDriverAssignedEvent(order, outboxTrip(), "usr_manager")

	assert.NoError(t, err)
	assert.Equal(t, EventDriverAssigned, msg.EventType)
	assert.Equal(t, "trip", msg.AggregateType)
	assert.Equal(t, "trp_1", msg.AggregateID)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.ProcessingAttempts)

	var event OutboxMessageEvent
	assert.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, EventDriverAssigned, event.EventType)
	assert.Equal(t, "trp_1", event.AggregateID)
	assert.NotEmpty(t, event.EventID)

	data, ok := event.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "usr_manager", data["assigned_by"])
	assert.Equal(t, "usr_d1", data["driver_id"])
}

func TestNewTripStatusChangedEvent(t *testing.T) {
	trip := outboxTrip()
	trip.Status = TripStatusInProgress

	msg, err := NewTripStatusChangedEvent(trip, TripStatusAssigned)

	assert.NoError(t, err)
	assert.Equal(t, EventTripStatusChanged, msg.EventType)

	var event OutboxMessageEvent
	assert.NoError(t, json.Unmarshal(msg.Payload, &event))

	data, ok := event.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "assigned", data["old_status"])
	assert.Equal(t, "in_progress", data["new_status"])
}

func TestNewDeliveryConfirmedEvent(t *testing.T) {
	msg, err := NewDeliveryConfirmedEvent(outboxTrip())

	assert.NoError(t, err)
	assert.Equal(t, EventDeliveryConfirmed, msg.EventType)

	var event OutboxMessageEvent
	assert.NoError(t, json.Unmarshal(msg.Payload, &event))

	data, ok := event.Data.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, 25.0, data["amount"])
}
