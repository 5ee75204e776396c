package notifier

import (
	"github.com/fleetgo/dispatch-api/internal/models"
)

// Event names pushed over the realtime channel. Each user has one channel;
// the event name tells the client what changed.
const (
	EventOrderAssigned       = "order:assigned"
	EventOrderDriverAssigned = "order:driver_assigned"
	EventTripStatusChanged   = "trip:status_changed"
	EventTripDelivered       = "trip:delivered"
)

// Notifier delivers best-effort realtime events to a single user. Delivery
// is fire-and-forget: an offline user is silently skipped, and no caller
// treats a missed push as an error.
type Notifier interface {
	EmitToUser(userID string, event string, payload interface{})
}

// AssignmentNotification is pushed to the driver when they are assigned
type AssignmentNotification struct {
	OrderID          string              `json:"order_id"`
	TripID           string              `json:"trip_id"`
	Pickup           models.Location     `json:"pickup"`
	Dropoff          models.Location     `json:"dropoff"`
	Items            models.OrderItems   `json:"items"`
	TotalAmount      float64             `json:"total_amount"`
	DeliveryFee      float64             `json:"delivery_fee"`
	ConfirmationCode string              `json:"confirmation_code"`
}

// DriverAssignedNotification is pushed to the customer when a driver is assigned
type DriverAssignedNotification struct {
	OrderID string                 `json:"order_id"`
	TripID  string                 `json:"trip_id"`
	Driver  models.DriverSummary   `json:"driver"`
	Vehicle *models.VehicleSummary `json:"vehicle,omitempty"`
}

// TripStatusNotification is pushed to the customer on trip status changes
type TripStatusNotification struct {
	TripID     string            `json:"trip_id"`
	OrderID    string            `json:"order_id"`
	Status     models.TripStatus `json:"status"`
	LiveStatus string            `json:"live_status"`
}

// DeliveredNotification is pushed to the customer when delivery is confirmed
type DeliveredNotification struct {
	TripID  string  `json:"trip_id"`
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

// Nop is a Notifier that drops every event. Used in tests and as a fallback
// when the realtime hub is disabled.
type Nop struct{}

// EmitToUser implements Notifier
func (Nop) EmitToUser(string, string, interface{}) {}
