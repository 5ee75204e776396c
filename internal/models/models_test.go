package models

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTerminal(t *testing.T) {
	cases := []struct {
		status   OrderStatus
		terminal bool
	}{
		{OrderStatusPending, false},
		{OrderStatusAssigned, false},
		{OrderStatusInProgress, false},
		{OrderStatusDelivered, true},
		{OrderStatusCompleted, true},
		{OrderStatusCancelled, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.terminal, tc.status.Terminal(), "status %s", tc.status)
	}
}

func TestTripStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    TripStatus
		to      TripStatus
		allowed bool
	}{
		{TripStatusAssigned, TripStatusInProgress, true},
		{TripStatusAssigned, TripStatusDelivered, false},
		{TripStatusAssigned, TripStatusCancelled, true},
		{TripStatusInProgress, TripStatusInProgress, false},
		{TripStatusInProgress, TripStatusDelivered, true},
		{TripStatusInProgress, TripStatusCancelled, true},
		{TripStatusDelivered, TripStatusInProgress, false},
		{TripStatusDelivered, TripStatusCancelled, false},
		{TripStatusCancelled, TripStatusInProgress, false},
		{TripStatusCancelled, TripStatusCancelled, false},
		{TripStatusAssigned, TripStatusAssigned, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTripStatusTerminal(t *testing.T) {
	assert.False(t, TripStatusAssigned.Terminal())
	assert.False(t, TripStatusInProgress.Terminal())
	assert.True(t, TripStatusDelivered.Terminal())
	assert.True(t, TripStatusCancelled.Terminal())
}

func TestDriverStatusIsBusy(t *testing.T) {
	assert.False(t, DriverStatusOffline.IsBusy())
	assert.False(t, DriverStatusOnline.IsBusy())
	assert.False(t, DriverStatusWaiting.IsBusy())
	assert.True(t, DriverStatusOnTrip.IsBusy())
	assert.True(t, DriverStatusBusy.IsBusy())
	assert.True(t, DriverStatusDelivering.IsBusy())
	assert.True(t, DriverStatusInProgress.IsBusy())
}

func TestUserAvailable(t *testing.T) {
	driver := &User{Role: RoleDriver, IsActive: true, DriverStatus: DriverStatusOnline}
	assert.True(t, driver.Available())

	driver.DriverStatus = DriverStatusOnTrip
	assert.False(t, driver.Available())

	driver.DriverStatus = DriverStatusOnline
	driver.IsActive = false
	assert.False(t, driver.Available())

	manager := &User{Role: RoleManager, IsActive: true, DriverStatus: DriverStatusOnline}
	assert.False(t, manager.Available())
}

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"owner", "company", "manager", "driver", "customer"} {
		role, err := ParseRole(raw)
		assert.NoError(t, err)
		assert.Equal(t, Role(raw), role)
	}

	_, err := ParseRole("superadmin")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestGenerateConfirmationCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)

	code, err := GenerateConfirmationCode()
	assert.NoError(t, err)
	assert.Regexp(t, pattern, code)

	// Distinct draws should differ; 10 draws colliding pairwise is vanishingly
	// unlikely with a million-value space.
	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		c, err := GenerateConfirmationCode()
		assert.NoError(t, err)
		seen[c] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestNewTripForOrderSnapshotsOrder(t *testing.T) {
	order := &Order{
		ID:          "ord_1",
		CompanyID:   "cmp_1",
		CustomerID:  "usr_customer",
		Status:      OrderStatusPending,
		Items:       OrderItems{{Name: "box", Quantity: 2, Price: 10}},
		Total:       20,
		DeliveryFee: 5,
		Pickup:      Location{Lat: 1, Lng: 2},
		Dropoff:     Location{Lat: 3, Lng: 4},
	}

	trip := NewTripForOrder(order, "usr_driver", sql.NullString{String: "veh_1", Valid: true}, "123456")

	assert.Equal(t, "ord_1", trip.OrderID)
	assert.Equal(t, "usr_driver", trip.DriverID)
	assert.Equal(t, "usr_customer", trip.CustomerID)
	assert.Equal(t, TripStatusAssigned, trip.Status)
	assert.Equal(t, "123456", trip.ConfirmationCode)
	assert.False(t, trip.CustomerConfirmed)
	assert.Equal(t, order.Items, trip.OrderItems)
	assert.Equal(t, 25.0, trip.DeliverableAmount())
	assert.True(t, trip.VehicleID.Valid)
}

func TestOrderAppendTimeline(t *testing.T) {
	order := &Order{}

	order.AppendTimeline("created", nil)
	order.AppendTimeline("assigned_driver", map[string]interface{}{"driver_id": "usr_driver"})

	assert.Len(t, order.Timeline, 2)
	assert.Equal(t, "created", order.Timeline[0].Action)
	assert.Equal(t, "assigned_driver", order.Timeline[1].Action)
	assert.Equal(t, "usr_driver", order.Timeline[1].Meta["driver_id"])
}

func TestSessionActive(t *testing.T) {
	now := time.Now().UTC()

	live := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Active(now))

	expired := &Session{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Active(now))

	revoked := &Session{
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: sql.NullTime{Time: now.Add(-time.Minute), Valid: true},
	}
	assert.False(t, revoked.Active(now))
}
