package models

import (
	"database/sql"
	"time"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCollected PaymentStatus = "collected"
)

// PaymentMethod is how the customer settles the order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Payment records the money owed for a delivered order. Cash-on-delivery
// payments are marked collected by the delivery confirmation.
type Payment struct {
	ID          string        `db:"id" json:"id"`
	CompanyID   string        `db:"company_id" json:"company_id"`
	OrderID     string        `db:"order_id" json:"order_id"`
	TripID      string        `db:"trip_id" json:"trip_id"`
	CustomerID  string        `db:"customer_id" json:"customer_id"`
	Amount      float64       `db:"amount" json:"amount"`
	Method      PaymentMethod `db:"method" json:"method"`
	Status      PaymentStatus `db:"status" json:"status"`
	CollectedAt sql.NullTime  `db:"collected_at" json:"collected_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// NewCashPayment creates a pending cash-on-delivery payment for a trip
func NewCashPayment(trip *Trip) *Payment {
	return &Payment{
		ID:         GenerateID("pay"),
		CompanyID:  trip.CompanyID,
		OrderID:    trip.OrderID,
		TripID:     trip.ID,
		CustomerID: trip.CustomerID,
		Amount:     trip.DeliverableAmount(),
		Method:     PaymentMethodCashOnDelivery,
		Status:     PaymentStatusPending,
		CreatedAt:  GetCurrentTime(),
	}
}
