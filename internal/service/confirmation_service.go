package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/notifier"
	"github.com/fleetgo/dispatch-api/internal/qr"
	"github.com/fleetgo/dispatch-api/internal/repository"
	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// ConfirmationService implements the signed-QR delivery protocol: the
// customer fetches a signed payload, the driver scans it, and a verified
// scan closes the trip, the order and the cash payment in one transaction.
type ConfirmationService struct {
	tx       TxBeginner
	users    UserStore
	orders   OrderStore
	trips    TripStore
	payments PaymentStore
	outbox   OutboxStore
	signer   *qr.Signer
	notifier notifier.Notifier
	logger   logger.Logger
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	tx TxBeginner,
	users UserStore,
	orders OrderStore,
	trips TripStore,
	payments PaymentStore,
	outbox OutboxStore,
	signer *qr.Signer,
	notif notifier.Notifier,
	logger logger.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		tx:       tx,
		users:    users,
		orders:   orders,
		trips:    trips,
		payments: payments,
		outbox:   outbox,
		signer:   signer,
		notifier: notif,
		logger:   logger,
	}
}

// QRForTrip issues the signed confirmation payload for a customer's trip.
// The payload is bound to the trip's current assignment; reassignment
// changes the confirmation code, which voids anything issued before.
func (s *ConfirmationService) QRForTrip(ctx context.Context, identity *auth.Identity, tripID string) (*qr.SignedPayload, error) {
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

	if trip.Status.Terminal() {
		return nil, apperrors.NewInvalidStateError("trip is already closed")
	}

	signed, err := s.signer.Sign(qr.PayloadForTrip(trip))
	if err != nil {
		s.logger.Error("Failed to sign confirmation payload", "error", err, "tripID", trip.ID)
		return nil, apperrors.NewInternalError("failed to sign confirmation payload")
	}

	return &signed, nil
}

// ConfirmDeliveryByScan completes a delivery from a scanned QR payload. The
// signature check runs before anything else touches the database beyond the
// trip load; a tampered payload mutates nothing.
func (s *ConfirmationService) ConfirmDeliveryByScan(ctx context.Context, identity *auth.Identity, payload qr.Payload, signature string) (*models.Trip, error) {
	valid, err := s.signer.Verify(payload, signature)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to verify confirmation payload")
	}

	if !valid {
		return nil, apperrors.NewInvalidSignatureError("confirmation signature is invalid")
	}

	trip, err := s.trips.GetByID(ctx, payload.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("trip not found")
		}
		return nil, apperrors.NewInternalError("failed to load trip")
	}

	if trip.DriverID != identity.UserID {
		return nil, apperrors.NewForbiddenError("trip belongs to another driver")
	}

	// A signature can be valid yet stale: issued for a prior assignment of
	// the same trip. The embedded code pins the payload to the current one.
	if payload.ConfirmationCode != trip.ConfirmationCode ||
		payload.DriverID != trip.DriverID ||
		payload.CustomerID != trip.CustomerID ||
		payload.CompanyID != trip.CompanyID ||
		payload.Amount != trip.DeliverableAmount() {
		return nil, apperrors.NewInvalidSignatureError("confirmation does not match trip")
	}

	if trip.Status != models.TripStatusInProgress {
		return nil, apperrors.NewInvalidStateError("trip is not deliverable")
	}

	trip, err = s.confirmInTx(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.EmitToUser(trip.CustomerID, notifier.EventTripDelivered, notifier.DeliveredNotification{
		TripID:  trip.ID,
		OrderID: trip.OrderID,
		Amount:  trip.DeliverableAmount(),
	})

	return trip, nil
}

func (s *ConfirmationService) confirmInTx(ctx context.Context, tripID string) (trip *models.Trip, err error) {
	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction")
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error("Failed to rollback delivery confirmation", "error", rollbackErr)
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

	if trip.Status != models.TripStatusInProgress {
		return nil, apperrors.NewInvalidStateError("trip is not deliverable")
	}

	now := models.GetCurrentTime()

	trip.Status = models.TripStatusDelivered
	trip.LiveStatus = "Delivered"
	trip.CustomerConfirmed = true
	trip.ConfirmationTime = sql.NullTime{Time: now, Valid: true}
	trip.EndTime = sql.NullTime{Time: now, Valid: true}

	if err = s.trips.UpdateStatusInTx(tx, trip); err != nil {
		return nil, apperrors.NewInternalError("failed to update trip")
	}

	order, err := s.orders.GetByIDInTx(tx, trip.OrderID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock order")
	}

	order.Status = models.OrderStatusDelivered
	order.AppendTimeline("delivered", map[string]interface{}{
		"trip_id":   trip.ID,
		"driver_id": trip.DriverID,
	})

	if err = s.orders.UpdateStatusInTx(tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	// Delivery is the terminal transition, so it also releases the driver.
	if err = s.users.UpdateDriverStatusInTx(tx, trip.DriverID, models.DriverStatusOnline); err != nil {
		return nil, apperrors.NewInternalError("failed to reset driver status")
	}

	payment := models.NewCashPayment(trip)
	payment.Status = models.PaymentStatusCollected
	payment.CollectedAt = sql.NullTime{Time: now, Valid: true}

	if err = s.payments.CreateInTx(tx, payment); err != nil {
		return nil, apperrors.NewInternalError("failed to record payment")
	}

	outboxMsg, err := models.NewDeliveryConfirmedEvent(trip)
	if err != nil {
		s.logger.Error("Failed to build delivery confirmed event", "error", err)
		return nil, apperrors.NewInternalError("failed to record delivery event")
	}

	if err = s.outbox.CreateInTx(tx, outboxMsg); err != nil {
		return nil, apperrors.NewInternalError("failed to record delivery event")
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit delivery confirmation", "error", err)
		return nil, apperrors.NewInternalError("failed to commit confirmation")
	}

	s.logger.Info("Delivery confirmed",
		"tripID", trip.ID,
		"orderID", trip.OrderID,
		"driverID", trip.DriverID,
		"amount", trip.DeliverableAmount())

	return trip, nil
}
