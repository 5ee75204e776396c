package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/notifier"
	"github.com/fleetgo/dispatch-api/internal/repository"
	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// DispatchService assigns drivers to orders. The assignment is the one
// multi-table write in the system: order, trip, driver status and the outbox
// event all change in a single transaction or not at all.
type DispatchService struct {
	tx       TxBeginner
	users    UserStore
	vehicles VehicleStore
	orders   OrderStore
	trips    TripStore
	outbox   OutboxStore
	notifier notifier.Notifier
	logger   logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	tx TxBeginner,
	users UserStore,
	vehicles VehicleStore,
	orders OrderStore,
	trips TripStore,
	outbox OutboxStore,
	notif notifier.Notifier,
	logger logger.Logger,
) *DispatchService {
	return &DispatchService{
		tx:       tx,
		users:    users,
		vehicles: vehicles,
		orders:   orders,
		trips:    trips,
		outbox:   outbox,
		notifier: notif,
		logger:   logger,
	}
}

// AssignmentResult is what an assignment returns to the dispatcher
type AssignmentResult struct {
	Order   *models.Order          `json:"order"`
	Trip    *models.Trip           `json:"trip"`
	Driver  models.DriverSummary   `json:"driver"`
	Vehicle *models.VehicleSummary `json:"vehicle,omitempty"`
}

// AssignDriver binds a driver (and their vehicle, if any) to an order,
// creating the order's trip on first assignment or rebinding the existing
// trip on reassignment. Every assignment issues a fresh confirmation code.
//
// Guard checks run first and fail without writing anything. The writes then
// run in one transaction, with the driver row locked so two dispatchers
// cannot assign the same driver concurrently.
func (s *DispatchService) AssignDriver(ctx context.Context, identity *auth.Identity, orderID, driverID string) (*AssignmentResult, error) {
	companyID, err := resolveCompanyScope(identity)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to load order")
	}

	if err := checkOrderScope(order, companyID, identity.ShopID); err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, apperrors.NewInvalidStateError("order is in a terminal state")
	}

	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("driver not found")
		}
		return nil, apperrors.NewInternalError("failed to load driver")
	}

	if driver.Role != models.RoleDriver {
		return nil, apperrors.NewNotFoundError("driver not found")
	}

	if err := checkDriverScope(driver, companyID, identity.ShopID); err != nil {
		return nil, err
	}

	if !driver.Available() {
		return nil, apperrors.NewDriverUnavailableError("driver is not available")
	}

	// Vehicle is optional; a driver without one is still assignable.
	var vehicle *models.Vehicle
	vehicle, err = s.vehicles.GetByDriverID(ctx, driverID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError("failed to load vehicle")
		}
		vehicle = nil
	}

	code, err := models.GenerateConfirmationCode()
	if err != nil {
		s.logger.Error("Failed to generate confirmation code", "error", err)
		return nil, apperrors.NewInternalError("failed to generate confirmation code")
	}

	result, err := s.assignInTx(ctx, identity, order, driver, vehicle, code)
	if err != nil {
		return nil, err
	}

	s.notifyAssignment(result)

	return result, nil
}

func (s *DispatchService) assignInTx(
	ctx context.Context,
	identity *auth.Identity,
	order *models.Order,
	driver *models.User,
	vehicle *models.Vehicle,
	code string,
) (result *AssignmentResult, err error) {
	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction")
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error("Failed to rollback assignment transaction", "error", rollbackErr)
			}
		}
	}()

	// Re-load under locks. The guard checks above read without locking, so
	// the order or driver may have changed since.
	order, err = s.orders.GetByIDInTx(tx, order.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock order")
	}

	if order.Status.Terminal() {
		return nil, apperrors.NewInvalidStateError("order is in a terminal state")
	}

	lockedDriver, err := s.users.GetDriverForUpdateInTx(tx, driver.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("driver not found")
		}
		return nil, apperrors.NewInternalError("failed to lock driver")
	}

	if !lockedDriver.Available() {
		return nil, apperrors.NewDriverUnavailableError("driver is not available")
	}

	var vehicleID sql.NullString
	if vehicle != nil {
		vehicleID = sql.NullString{String: vehicle.ID, Valid: true}
	}

	trip, err := s.trips.GetByOrderIDInTx(tx, order.ID)

	switch {
	case err == nil:
		// Reassignment rebinds the existing trip and invalidates the old code.
		trip.DriverID = lockedDriver.ID
		trip.VehicleID = vehicleID
		trip.Status = models.TripStatusAssigned
		trip.LiveStatus = "Driver Assigned"
		trip.ConfirmationCode = code
		trip.CustomerConfirmed = false

		if err = s.trips.UpdateAssignmentInTx(tx, trip); err != nil {
			return nil, apperrors.NewInternalError("failed to update trip")
		}
	case errors.Is(err, repository.ErrNotFound):
		trip = models.NewTripForOrder(order, lockedDriver.ID, vehicleID, code)

		if err = s.trips.CreateInTx(tx, trip); err != nil {
			return nil, apperrors.NewInternalError("failed to create trip")
		}
	default:
		return nil, apperrors.NewInternalError("failed to load trip")
	}

	order.DriverID = sql.NullString{String: lockedDriver.ID, Valid: true}
	order.VehicleID = vehicleID
	order.TripID = sql.NullString{String: trip.ID, Valid: true}
	order.Status = models.OrderStatusAssigned
	order.AppendTimeline("assigned_driver", map[string]interface{}{
		"by":        identity.UserID,
		"driver_id": lockedDriver.ID,
		"trip_id":   trip.ID,
	})

	if err = s.orders.UpdateAssignmentInTx(tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	if err = s.users.UpdateDriverStatusInTx(tx, lockedDriver.ID, models.DriverStatusOnTrip); err != nil {
		return nil, apperrors.NewInternalError("failed to update driver status")
	}

	outboxMsg, err := models.NewDriverAssignedEvent(order, trip, identity.UserID)
	if err != nil {
		s.logger.Error("Failed to build driver assigned event", "error", err)
		return nil, apperrors.NewInternalError("failed to record assignment event")
	}

	if err = s.outbox.CreateInTx(tx, outboxMsg); err != nil {
		return nil, apperrors.NewInternalError("failed to record assignment event")
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit assignment transaction", "error", err)
		return nil, apperrors.NewInternalError("failed to commit assignment")
	}

	s.logger.Info("Driver assigned",
		"orderID", order.ID,
		"tripID", trip.ID,
		"driverID", lockedDriver.ID,
		"assignedBy", identity.UserID)

	lockedDriver.DriverStatus = models.DriverStatusOnTrip

	result = &AssignmentResult{
		Order:  order,
		Trip:   trip,
		Driver: lockedDriver.Summary(),
	}

	if vehicle != nil {
		v := vehicle.Summary()
		result.Vehicle = &v
	}

	return result, nil
}

// notifyAssignment pushes the two post-commit realtime events. Failures are
// invisible to the dispatcher; the committed state is the source of truth.
func (s *DispatchService) notifyAssignment(result *AssignmentResult) {
	trip := result.Trip

	s.notifier.EmitToUser(trip.DriverID, notifier.EventOrderAssigned, notifier.AssignmentNotification{
		OrderID:          trip.OrderID,
		TripID:           trip.ID,
		Pickup:           trip.Pickup,
		Dropoff:          trip.Dropoff,
		Items:            trip.OrderItems,
		TotalAmount:      trip.TotalAmount,
		DeliveryFee:      trip.DeliveryFee,
		ConfirmationCode: trip.ConfirmationCode,
	})

	s.notifier.EmitToUser(trip.CustomerID, notifier.EventOrderDriverAssigned, notifier.DriverAssignedNotification{
		OrderID: trip.OrderID,
		TripID:  trip.ID,
		Driver:  result.Driver,
		Vehicle: result.Vehicle,
	})
}

// checkOrderScope verifies the order belongs to the caller's company and,
// when the caller is shop-scoped, to their shop.
func checkOrderScope(order *models.Order, companyID string, shopID sql.NullString) error {
	if order.CompanyID != companyID {
		return apperrors.NewScopeViolationError("order belongs to another company")
	}

	if shopID.Valid && order.ShopID.Valid && order.ShopID.String != shopID.String {
		return apperrors.NewScopeViolationError("order belongs to another shop")
	}

	return nil
}

// checkDriverScope verifies the driver belongs to the caller's company and,
// when the caller is shop-scoped, to their shop.
func checkDriverScope(driver *models.User, companyID string, shopID sql.NullString) error {
	if !driver.CompanyID.Valid || driver.CompanyID.String != companyID {
		return apperrors.NewScopeViolationError("driver belongs to another company")
	}

	if shopID.Valid && driver.ShopID.Valid && driver.ShopID.String != shopID.String {
		return apperrors.NewScopeViolationError("driver belongs to another shop")
	}

	return nil
}
