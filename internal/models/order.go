package models

import (
	"database/sql"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether the status permits no further driver assignment
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order is a customer's delivery request, owned by a company and optionally
// scoped to a shop. It is referenced, never owned, by its Trip.
type Order struct {
	ID          string         `db:"id" json:"id"`
	CompanyID   string         `db:"company_id" json:"company_id"`
	ShopID      sql.NullString `db:"shop_id" json:"shop_id,omitempty"`
	CustomerID  string         `db:"customer_id" json:"customer_id"`
	DriverID    sql.NullString `db:"driver_id" json:"driver_id,omitempty"`
	VehicleID   sql.NullString `db:"vehicle_id" json:"vehicle_id,omitempty"`
	TripID      sql.NullString `db:"trip_id" json:"trip_id,omitempty"`
	Status      OrderStatus    `db:"status" json:"status"`
	Pickup      Location       `db:"pickup" json:"pickup"`
	Dropoff     Location       `db:"dropoff" json:"dropoff"`
	Items       OrderItems     `db:"items" json:"items"`
	Total       float64        `db:"total" json:"total"`
	DeliveryFee float64        `db:"delivery_fee" json:"delivery_fee"`
	Timeline    Timeline       `db:"timeline" json:"timeline"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AppendTimeline records an audit entry. The timeline is append-only; no
// code path removes or rewrites entries.
func (o *Order) AppendTimeline(action string, meta map[string]interface{}) {
	o.Timeline = append(o.Timeline, TimelineEntry{
		Action:    action,
		Meta:      meta,
		Timestamp: GetCurrentTime(),
	})
}
