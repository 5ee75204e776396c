package models

import (
	"database/sql"
	"time"
)

// VehicleStatus is the operational state of a vehicle
type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusInUse       VehicleStatus = "in_use"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// Vehicle is owned 1:1 by a verified driver, not pooled. The dispatch flow
// only reads it to attach a vehicle reference to the trip and order.
type Vehicle struct {
	ID          string         `db:"id" json:"id"`
	CompanyID   string         `db:"company_id" json:"company_id"`
	ShopID      sql.NullString `db:"shop_id" json:"shop_id,omitempty"`
	DriverID    string         `db:"driver_id" json:"driver_id"`
	PlateNumber string         `db:"plate_number" json:"plate_number"`
	Model       string         `db:"model" json:"model,omitempty"`
	Status      VehicleStatus  `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// VehicleSummary is the vehicle shape embedded in responses and notifications
type VehicleSummary struct {
	ID          string `json:"id"`
	PlateNumber string `json:"plate_number"`
	Model       string `json:"model,omitempty"`
}

// Summary returns the notification-facing view of a vehicle
func (v *Vehicle) Summary() VehicleSummary {
	return VehicleSummary{
		ID:          v.ID,
		PlateNumber: v.PlateNumber,
		Model:       v.Model,
	}
}
