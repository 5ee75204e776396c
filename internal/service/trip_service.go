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

// TripService handles the driver-facing trip lifecycle: starting a trip,
// cancelling it, recording location breadcrumbs, and the read paths for
// drivers and customers. Delivery itself goes through the scan confirmation.
type TripService struct {
	tx       TxBeginner
	users    UserStore
	orders   OrderStore
	trips    TripStore
	outbox   OutboxStore
	notifier notifier.Notifier
	logger   logger.Logger
}

// NewTripService creates a new TripService
func NewTripService(
	tx TxBeginner,
	users UserStore,
	orders OrderStore,
	trips TripStore,
	outbox OutboxStore,
	notif notifier.Notifier,
	logger logger.Logger,
) *TripService {
	return &TripService{
		tx:       tx,
		users:    users,
		orders:   orders,
		trips:    trips,
		outbox:   outbox,
		notifier: notif,
		logger:   logger,
	}
}

// ListDriverTrips returns the caller's trips, most recent first
func (s *TripService) ListDriverTrips(ctx context.Context, identity *auth.Identity) ([]*models.Trip, error) {
	trips, err := s.trips.ListByDriver(ctx, identity.UserID)

	if err != nil {
		s.logger.Error("Failed to list driver trips", "error", err, "driverID", identity.UserID)
		return nil, apperrors.NewInternalError("failed to list trips")
	}

	return trips, nil
}

// GetTripForCustomer returns the tracking snapshot of a customer's own trip
func (s *TripService) GetTripForCustomer(ctx context.Context, identity *auth.Identity, tripID string) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("trip not found")
		}
		return nil, apperrors.NewInternalError("failed to load trip")
	}

	if trip.CustomerID != identity.UserID {
		return nil, apperrors.NewScopeViolationError("trip belongs to another customer")
	}

	return trip, nil
}

// UpdateTripStatus moves a trip to in_progress or cancelled on behalf of its
// driver. Delivered is not reachable here; it requires the scan confirmation.
// A cancellation resets the driver's availability and returns the order to
// the dispatch pool, all in the same transaction.
func (s *TripService) UpdateTripStatus(ctx context.Context, identity *auth.Identity, tripID string, target models.TripStatus) (*models.Trip, error) {
	if target != models.TripStatusInProgress && target != models.TripStatusCancelled {
		return nil, apperrors.NewInvalidStateError("unsupported status transition")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("trip not found")
		}
		return nil, apperrors.NewInternalError("failed to load trip")
	}

	if trip.DriverID != identity.UserID {
		return nil, apperrors.NewForbiddenError("trip belongs to another driver")
	}

	if !trip.Status.CanTransition(target) {
		return nil, apperrors.NewInvalidStateError("trip cannot transition to " + string(target))
	}

	trip, err = s.transitionInTx(ctx, tripID, target)
	if err != nil {
		return nil, err
	}

	s.notifier.EmitToUser(trip.CustomerID, notifier.EventTripStatusChanged, notifier.TripStatusNotification{
		TripID:     trip.ID,
		OrderID:    trip.OrderID,
		Status:     trip.Status,
		LiveStatus: trip.LiveStatus,
	})

	return trip, nil
}

func (s *TripService) transitionInTx(ctx context.Context, tripID string, target models.TripStatus) (trip *models.Trip, err error) {
	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction")
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error("Failed to rollback trip transition", "error", rollbackErr)
			}
		}
	}()

	trip, err = s.trips.GetByIDInTx(tx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("trip not found")
		}
		return nil, apperrors.NewInternalError("failed to lock trip")
	}

	if !trip.Status.CanTransition(target) {
		return nil, apperrors.NewInvalidStateError("trip cannot transition to " + string(target))
	}

	oldStatus := trip.Status

	order, err := s.orders.GetByIDInTx(tx, trip.OrderID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock order")
	}

	now := models.GetCurrentTime()

	switch target {
	case models.TripStatusInProgress:
		trip.Status = models.TripStatusInProgress
		trip.LiveStatus = "On The Way"

		order.Status = models.OrderStatusInProgress
		order.AppendTimeline("trip_started", map[string]interface{}{
			"trip_id":   trip.ID,
			"driver_id": trip.DriverID,
		})
	case models.TripStatusCancelled:
		trip.Status = models.TripStatusCancelled
		trip.LiveStatus = "Cancelled"
		trip.EndTime = sql.NullTime{Time: now, Valid: true}

		// The order goes back to the dispatch pool and the driver becomes
		// assignable again.
		order.Status = models.OrderStatusPending
		order.DriverID = sql.NullString{}
		order.VehicleID = sql.NullString{}
		order.TripID = sql.NullString{}
		order.AppendTimeline("trip_cancelled", map[string]interface{}{
			"trip_id":   trip.ID,
			"driver_id": trip.DriverID,
		})

		if err = s.users.UpdateDriverStatusInTx(tx, trip.DriverID, models.DriverStatusOnline); err != nil {
			return nil, apperrors.NewInternalError("failed to reset driver status")
		}
	}

	if err = s.trips.UpdateStatusInTx(tx, trip); err != nil {
		return nil, apperrors.NewInternalError("failed to update trip")
	}

	if err = s.orders.UpdateStatusInTx(tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	outboxMsg, err := models.NewTripStatusChangedEvent(trip, oldStatus)
	if err != nil {
		s.logger.Error("Failed to build trip status event", "error", err)
		return nil, apperrors.NewInternalError("failed to record trip event")
	}

	if err = s.outbox.CreateInTx(tx, outboxMsg); err != nil {
		return nil, apperrors.NewInternalError("failed to record trip event")
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit trip transition", "error", err)
		return nil, apperrors.NewInternalError("failed to commit transition")
	}

	s.logger.Info("Trip status changed",
		"tripID", trip.ID,
		"from", oldStatus,
		"to", trip.Status)

	return trip, nil
}

// RecordLocation appends a GPS breadcrumb to an in-progress trip
func (s *TripService) RecordLocation(ctx context.Context, identity *auth.Identity, tripID string, point models.RoutePoint) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError("trip not found")
		}
		return apperrors.NewInternalError("failed to load trip")
	}

	if trip.DriverID != identity.UserID {
		return apperrors.NewForbiddenError("trip belongs to another driver")
	}

	if trip.Status != models.TripStatusInProgress {
		return apperrors.NewInvalidStateError("trip is not in progress")
	}

	if point.Timestamp.IsZero() {
		point.Timestamp = models.GetCurrentTime()
	}

	if err := s.trips.AppendRoutePoint(ctx, tripID, point); err != nil {
		return apperrors.NewInternalError("failed to record location")
	}

	return nil
}
