package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/notifier"
	"github.com/fleetgo/dispatch-api/internal/repository"
	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

type dispatchFixture struct {
	tx       *txBeginnerMock
	users    *userStoreMock
	vehicles *vehicleStoreMock
	orders   *orderStoreMock
	trips    *tripStoreMock
	outbox   *outboxStoreMock
	notifier *notifierRecorder
	service  *DispatchService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		tx:       new(txBeginnerMock),
		users:    new(userStoreMock),
		vehicles: new(vehicleStoreMock),
		orders:   new(orderStoreMock),
		trips:    new(tripStoreMock),
		outbox:   new(outboxStoreMock),
		notifier: new(notifierRecorder),
	}
	f.service = NewDispatchService(
		f.tx, f.users, f.vehicles, f.orders, f.trips, f.outbox,
		f.notifier, logger.NewNopLogger(),
	)
	return f
}

func TestAssignDriverFirstAssignment(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	driver := onlineDriver("usr_d1")
	vehicle := &models.Vehicle{ID: "veh_1", DriverID: "usr_d1", PlateNumber: "AB-123"}
	tx := new(txMock)

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)
	f.users.On("GetByID", ctx, "usr_d1").Return(driver, nil)
	f.vehicles.On("GetByDriverID", ctx, "usr_d1").Return(vehicle, nil)
	f.tx.On("BeginTx", ctx).Return(tx, nil)
	f.orders.On("GetByIDInTx", tx, "ord_1").Return(order, nil)
	f.users.On("GetDriverForUpdateInTx", tx, "usr_d1").Return(driver, nil)
	f.trips.On("GetByOrderIDInTx", tx, "ord_1").Return(nil, repository.ErrNotFound)
	f.trips.On("CreateInTx", tx, mock.AnythingOfType("*models.Trip")).Return(nil)
	f.orders.On("UpdateAssignmentInTx", tx, order).Return(nil)
	f.users.On("UpdateDriverStatusInTx", tx, "usr_d1", models.DriverStatusOnTrip).Return(nil)
	f.outbox.On("CreateInTx", tx, mock.AnythingOfType("*models.OutboxMessage")).Return(nil)
	tx.On("Commit").Return(nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssigned, result.Order.Status)
	assert.Equal(t, "usr_d1", result.Trip.DriverID)
	assert.Equal(t, models.TripStatusAssigned, result.Trip.Status)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), result.Trip.ConfirmationCode)
	assert.Equal(t, models.DriverStatusOnTrip, result.Driver.Status)
	assert.NotNil(t, result.Vehicle)
	assert.Equal(t, "AB-123", result.Vehicle.PlateNumber)
	assert.True(t, result.Order.TripID.Valid)
	assert.Equal(t, result.Trip.ID, result.Order.TripID.String)

	// Both parties get a push after commit.
	assert.Len(t, f.notifier.emissions, 2)
	assert.Equal(t, "usr_d1", f.notifier.emissions[0].UserID)
	assert.Equal(t, notifier.EventOrderAssigned, f.notifier.emissions[0].Event)
	assert.Equal(t, "usr_customer", f.notifier.emissions[1].UserID)
	assert.Equal(t, notifier.EventOrderDriverAssigned, f.notifier.emissions[1].Event)

	f.trips.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.users.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestAssignDriverWithoutVehicle(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	driver := onlineDriver("usr_d1")
	tx := new(txMock)

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)
	f.users.On("GetByID", ctx, "usr_d1").Return(driver, nil)
	f.vehicles.On("GetByDriverID", ctx, "usr_d1").Return(nil, repository.ErrNotFound)
	f.tx.On("BeginTx", ctx).Return(tx, nil)
	f.orders.On("GetByIDInTx", tx, "ord_1").Return(order, nil)
	f.users.On("GetDriverForUpdateInTx", tx, "usr_d1").Return(driver, nil)
	f.trips.On("GetByOrderIDInTx", tx, "ord_1").Return(nil, repository.ErrNotFound)
	f.trips.On("CreateInTx", tx, mock.AnythingOfType("*models.Trip")).Return(nil)
	f.orders.On("UpdateAssignmentInTx", tx, order).Return(nil)
	f.users.On("UpdateDriverStatusInTx", tx, "usr_d1", models.DriverStatusOnTrip).Return(nil)
	f.outbox.On("CreateInTx", tx, mock.AnythingOfType("*models.OutboxMessage")).Return(nil)
	tx.On("Commit").Return(nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.NoError(t, err)
	assert.Nil(t, result.Vehicle)
	assert.False(t, result.Trip.VehicleID.Valid)
}

func TestAssignDriverReassignmentRebindsTrip(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	order.Status = models.OrderStatusAssigned
	order.DriverID = sql.NullString{String: "usr_d1", Valid: true}
	order.TripID = sql.NullString{String: "trp_1", Valid: true}

	existing := &models.Trip{
		ID:               "trp_1",
		CompanyID:        "cmp_1",
		OrderID:          "ord_1",
		DriverID:         "usr_d1",
		CustomerID:       "usr_customer",
		Status:           models.TripStatusAssigned,
		ConfirmationCode: "111111",
		CustomerConfirmed: false,
	}

	replacement := onlineDriver("usr_d2")
	tx := new(txMock)

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)
	f.users.On("GetByID", ctx, "usr_d2").Return(replacement, nil)
	f.vehicles.On("GetByDriverID", ctx, "usr_d2").Return(nil, repository.ErrNotFound)
	f.tx.On("BeginTx", ctx).Return(tx, nil)
	f.orders.On("GetByIDInTx", tx, "ord_1").Return(order, nil)
	f.users.On("GetDriverForUpdateInTx", tx, "usr_d2").Return(replacement, nil)
	f.trips.On("GetByOrderIDInTx", tx, "ord_1").Return(existing, nil)
	f.trips.On("UpdateAssignmentInTx", tx, existing).Return(nil)
	f.orders.On("UpdateAssignmentInTx", tx, order).Return(nil)
	f.users.On("UpdateDriverStatusInTx", tx, "usr_d2", models.DriverStatusOnTrip).Return(nil)
	f.outbox.On("CreateInTx", tx, mock.AnythingOfType("*models.OutboxMessage")).Return(nil)
	tx.On("Commit").Return(nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d2")

	assert.NoError(t, err)
	assert.Equal(t, "trp_1", result.Trip.ID)
	assert.Equal(t, "usr_d2", result.Trip.DriverID)
	assert.NotEqual(t, "111111", result.Trip.ConfirmationCode)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), result.Trip.ConfirmationCode)
	assert.False(t, result.Trip.CustomerConfirmed)
	assert.Equal(t, "usr_d2", result.Order.DriverID.String)

	// No trip is created and the prior driver's status is untouched.
	f.trips.AssertNotCalled(t, "CreateInTx", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "UpdateDriverStatusInTx", tx, "usr_d1", mock.Anything)
}

func TestAssignDriverTerminalOrder(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	order.Status = models.OrderStatusDelivered

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	f.tx.AssertNotCalled(t, "BeginTx", mock.Anything)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAssignDriverOrderOutsideCompany(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	order.CompanyID = "cmp_other"

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrScopeViolation)
	f.tx.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestAssignDriverOutsideShop(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	identity := managerIdentity()
	identity.ShopID = sql.NullString{String: "shp_1", Valid: true}

	order := pendingOrder()
	order.ShopID = sql.NullString{String: "shp_2", Valid: true}

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)

	_, err := f.service.AssignDriver(ctx, identity, "ord_1", "usr_d1")

	assert.ErrorIs(t, err, apperrors.ErrScopeViolation)
}

func TestAssignDriverBusyDriver(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	driver := onlineDriver("usr_d1")
	driver.DriverStatus = models.DriverStatusOnTrip

	f.orders.On("GetByID", ctx, "ord_1").Return(pendingOrder(), nil)
	f.users.On("GetByID", ctx, "usr_d1").Return(driver, nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrDriverUnavailable)
	f.tx.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestAssignDriverNonDriverTarget(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	target := onlineDriver("usr_m2")
	target.Role = models.RoleManager

	f.orders.On("GetByID", ctx, "ord_1").Return(pendingOrder(), nil)
	f.users.On("GetByID", ctx, "usr_m2").Return(target, nil)

	_, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_m2")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAssignDriverNoCompanyScope(t *testing.T) {
	f := newDispatchFixture()

	identity := managerIdentity()
	identity.CompanyID = sql.NullString{}

	_, err := f.service.AssignDriver(context.Background(), identity, "ord_1", "usr_d1")

	assert.ErrorIs(t, err, apperrors.ErrScopeResolution)
	f.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAssignDriverLockedRecheckRollsBack(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()
	order := pendingOrder()
	driver := onlineDriver("usr_d1")

	// Another dispatcher won the race between the guard check and the lock.
	lockedBusy := onlineDriver("usr_d1")
	lockedBusy.DriverStatus = models.DriverStatusOnTrip

	tx := new(txMock)

	f.orders.On("GetByID", ctx, "ord_1").Return(order, nil)
	f.users.On("GetByID", ctx, "usr_d1").Return(driver, nil)
	f.vehicles.On("GetByDriverID", ctx, "usr_d1").Return(nil, repository.ErrNotFound)
	f.tx.On("BeginTx", ctx).Return(tx, nil)
	f.orders.On("GetByIDInTx", tx, "ord_1").Return(order, nil)
	f.users.On("GetDriverForUpdateInTx", tx, "usr_d1").Return(lockedBusy, nil)
	tx.On("Rollback").Return(nil)

	result, err := f.service.AssignDriver(ctx, managerIdentity(), "ord_1", "usr_d1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrDriverUnavailable)
	tx.AssertCalled(t, "Rollback")
	tx.AssertNotCalled(t, "Commit")
	assert.Empty(t, f.notifier.emissions)
}
