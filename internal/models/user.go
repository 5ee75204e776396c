package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Role is the closed set of user roles. Role checks switch exhaustively on
// these values rather than comparing free-form strings.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleCompany  Role = "company"
	RoleManager  Role = "manager"
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// ParseRole validates a raw role string against the closed role set
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleCompany, RoleManager, RoleDriver, RoleCustomer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// DriverStatus is the derived availability state carried on driver users
type DriverStatus string

const (
	DriverStatusOffline    DriverStatus = "offline"
	DriverStatusOnline     DriverStatus = "online"
	DriverStatusWaiting    DriverStatus = "waiting"
	DriverStatusOnTrip     DriverStatus = "on_trip"
	DriverStatusBusy       DriverStatus = "busy"
	DriverStatusDelivering DriverStatus = "delivering"
	DriverStatusInProgress DriverStatus = "in_progress"
)

// BusyDriverStatuses is the availability predicate's exclusion set. A driver
// in any of these states cannot take a new assignment.
var BusyDriverStatuses = []DriverStatus{
	DriverStatusOnTrip,
	DriverStatusBusy,
	DriverStatusDelivering,
	DriverStatusInProgress,
}

// IsBusy reports whether the status is in the busy set
func (s DriverStatus) IsBusy() bool {
	for _, busy := range BusyDriverStatuses {
		if s == busy {
			return true
		}
	}
	return false
}

// User represents any platform user; driver-specific fields are meaningful
// only when Role is RoleDriver.
type User struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	Phone        string         `db:"phone" json:"phone,omitempty"`
	Role         Role           `db:"role" json:"role"`
	CompanyID    sql.NullString `db:"company_id" json:"company_id,omitempty"`
	ShopID       sql.NullString `db:"shop_id" json:"shop_id,omitempty"`
	DriverStatus DriverStatus   `db:"driver_status" json:"driver_status,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Available reports whether the driver can take a new assignment right now
func (u *User) Available() bool {
	return u.Role == RoleDriver && u.IsActive && !u.DriverStatus.IsBusy()
}

// DriverSummary is the driver shape embedded in responses and notifications
type DriverSummary struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Phone  string       `json:"phone,omitempty"`
	Status DriverStatus `json:"status"`
}

// Summary returns the notification-facing view of a driver
func (u *User) Summary() DriverSummary {
	return DriverSummary{
		ID:     u.ID,
		Name:   u.Name,
		Phone:  u.Phone,
		Status: u.DriverStatus,
	}
}

// AvailableDriver pairs a free driver with their vehicle for assignment
type AvailableDriver struct {
	Driver  DriverSummary   `json:"driver"`
	Vehicle *VehicleSummary `json:"vehicle,omitempty"`
}

// Session is an active login session checked on every request
type Session struct {
	ID        string       `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	RevokedAt sql.NullTime `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Active reports whether the session is currently valid
func (s *Session) Active(now time.Time) bool {
	return !s.RevokedAt.Valid && now.Before(s.ExpiresAt)
}
