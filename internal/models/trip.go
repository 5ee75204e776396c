package models

import (
	"database/sql"
	"time"
)

// TripStatus represents the status of a trip
type TripStatus string

const (
	TripStatusAssigned   TripStatus = "assigned"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusDelivered  TripStatus = "delivered"
	TripStatusCancelled  TripStatus = "cancelled"
)

// Terminal reports whether the trip has reached a final state
func (s TripStatus) Terminal() bool {
	return s == TripStatusDelivered || s == TripStatusCancelled
}

// CanTransition reports whether the status may move to the target state.
// Delivery is only reachable from in_progress; cancellation from any
// non-terminal state.
func (s TripStatus) CanTransition(to TripStatus) bool {
	switch to {
	case TripStatusInProgress:
		return s == TripStatusAssigned
	case TripStatusDelivered:
		return s == TripStatusInProgress
	case TripStatusCancelled:
		return !s.Terminal()
	default:
		return false
	}
}

// Trip is the operational record of a single delivery run. It snapshots the
// order's items and amounts at assignment time rather than referencing them
// live, so later catalog edits cannot change what the driver carries.
type Trip struct {
	ID               string         `db:"id" json:"id"`
	CompanyID        string         `db:"company_id" json:"company_id"`
	OrderID          string         `db:"order_id" json:"order_id"`
	DriverID         string         `db:"driver_id" json:"driver_id"`
	CustomerID       string         `db:"customer_id" json:"customer_id"`
	VehicleID        sql.NullString `db:"vehicle_id" json:"vehicle_id,omitempty"`
	Status           TripStatus     `db:"status" json:"status"`
	LiveStatus       string         `db:"live_status" json:"live_status"`
	ConfirmationCode string         `db:"confirmation_code" json:"confirmation_code"`
	CustomerConfirmed bool          `db:"customer_confirmed" json:"customer_confirmed"`
	ConfirmationTime sql.NullTime   `db:"confirmation_time" json:"confirmation_time,omitempty"`
	OrderItems       OrderItems     `db:"order_items" json:"order_items"`
	TotalAmount      float64        `db:"total_amount" json:"total_amount"`
	DeliveryFee      float64        `db:"delivery_fee" json:"delivery_fee"`
	Pickup           Location       `db:"pickup" json:"pickup"`
	Dropoff          Location       `db:"dropoff" json:"dropoff"`
	RouteHistory     RouteHistory   `db:"route_history" json:"route_history"`
	StartTime        time.Time      `db:"start_time" json:"start_time"`
	EndTime          sql.NullTime   `db:"end_time" json:"end_time,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// NewTripForOrder materializes a trip from an order at first assignment
func NewTripForOrder(order *Order, driverID string, vehicleID sql.NullString, confirmationCode string) *Trip {
	now := GetCurrentTime()

	return &Trip{
		ID:               GenerateID("trp"),
		CompanyID:        order.CompanyID,
		OrderID:          order.ID,
		DriverID:         driverID,
		CustomerID:       order.CustomerID,
		VehicleID:        vehicleID,
		Status:           TripStatusAssigned,
		LiveStatus:       "Driver Assigned",
		ConfirmationCode: confirmationCode,
		CustomerConfirmed: false,
		OrderItems:       order.Items,
		TotalAmount:      order.Total,
		DeliveryFee:      order.DeliveryFee,
		Pickup:           order.Pickup,
		Dropoff:          order.Dropoff,
		RouteHistory:     RouteHistory{},
		StartTime:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// DeliverableAmount is the total the customer owes on delivery; it is the
// amount bound into the signed QR payload.
func (t *Trip) DeliverableAmount() float64 {
	return t.TotalAmount + t.DeliveryFee
}
