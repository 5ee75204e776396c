package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Nested document fields (locations, item snapshots, timelines, route
// breadcrumbs) are stored as JSONB columns. Each wrapper type implements
// driver.Valuer and sql.Scanner so sqlx can read and write them directly.

// Location is a pickup or dropoff point
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Value implements driver.Valuer
func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// OrderItem is a single line item on an order
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderItems is the JSONB list of line items
type OrderItems []OrderItem

// Value implements driver.Valuer
func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		items = OrderItems{}
	}
	return json.Marshal(items)
}

// Scan implements sql.Scanner
func (items *OrderItems) Scan(src interface{}) error {
	return scanJSON(src, items)
}

// TimelineEntry is one append-only audit record on an order
type TimelineEntry struct {
	Action    string                 `json:"action"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Timeline is the JSONB audit log. Entries are only ever appended.
type Timeline []TimelineEntry

// Value implements driver.Valuer
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		t = Timeline{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner
func (t *Timeline) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// RoutePoint is a single driver location breadcrumb
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteHistory is the JSONB breadcrumb trail recorded during a trip
type RouteHistory []RoutePoint

// Value implements driver.Valuer
func (rh RouteHistory) Value() (driver.Value, error) {
	if rh == nil {
		rh = RouteHistory{}
	}
	return json.Marshal(rh)
}

// Scan implements sql.Scanner
func (rh *RouteHistory) Scan(src interface{}) error {
	return scanJSON(src, rh)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON field", src)
	}
}
