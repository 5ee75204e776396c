package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetgo/dispatch-api/internal/database"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

const tripColumns = `id, company_id, order_id, driver_id, customer_id, vehicle_id,
	   status, live_status, confirmation_code, customer_confirmed,
	   confirmation_time, order_items, total_amount, delivery_fee, pickup,
	   dropoff, route_history, start_time, end_time, created_at, updated_at`

// TripRepository handles database operations for trips
type TripRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *database.Database, logger logger.Logger) *TripRepository {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

// CreateInTx inserts a new trip within a transaction
func (r *TripRepository) CreateInTx(tx Tx, trip *models.Trip) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trips (id, company_id, order_id, driver_id, customer_id,
						   vehicle_id, status, live_status, confirmation_code,
						   customer_confirmed, order_items, total_amount,
						   delivery_fee, pickup, dropoff, route_history,
						   start_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19)
	`

	_, err = sqlTx.Exec(
		query,
		trip.ID,
		trip.CompanyID,
		trip.OrderID,
		trip.DriverID,
		trip.CustomerID,
		trip.VehicleID,
		trip.Status,
		trip.LiveStatus,
		trip.ConfirmationCode,
		trip.CustomerConfirmed,
		trip.OrderItems,
		trip.TotalAmount,
		trip.DeliveryFee,
		trip.Pickup,
		trip.Dropoff,
		trip.RouteHistory,
		trip.StartTime,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create trip", "error", err, "tripID", trip.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a trip by its ID
func (r *TripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	var trip models.Trip
	err := r.db.DB.GetContext(ctx, &trip, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get trip by ID", "error", err, "tripID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &trip, nil
}

// GetByIDInTx retrieves and locks a trip within a transaction
func (r *TripRepository) GetByIDInTx(tx Tx, id string) (*models.Trip, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	var trip models.Trip
	err = sqlTx.Get(&trip, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get trip in transaction", "error", err, "tripID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &trip, nil
}

// GetByOrderIDInTx retrieves and locks the order's live trip, if one exists.
// Terminal trips are excluded; an order whose trip was cancelled gets a
// fresh trip on its next assignment.
func (r *TripRepository) GetByOrderIDInTx(tx Tx, orderID string) (*models.Trip, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE order_id = $1 AND status NOT IN ('delivered', 'cancelled')
		FOR UPDATE`

	var trip models.Trip
	err = sqlTx.Get(&trip, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get trip by order in transaction", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &trip, nil
}

// UpdateAssignmentInTx rebinds an existing trip to a new driver and vehicle
// within a transaction. Reassignment always carries a fresh confirmation
// code, so any previously issued code or QR stops verifying.
func (r *TripRepository) UpdateAssignmentInTx(tx Tx, trip *models.Trip) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE trips
		SET driver_id = $1, vehicle_id = $2, status = $3, live_status = $4,
			confirmation_code = $5, customer_confirmed = $6, updated_at = $7
		WHERE id = $8
	`

	trip.UpdatedAt = models.GetCurrentTime()

	_, err = sqlTx.Exec(
		query,
		trip.DriverID,
		trip.VehicleID,
		trip.Status,
		trip.LiveStatus,
		trip.ConfirmationCode,
		trip.CustomerConfirmed,
		trip.UpdatedAt,
		trip.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update trip assignment", "error", err, "tripID", trip.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// ListByDriver retrieves a driver's trips, most recent first
func (r *TripRepository) ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 ORDER BY created_at DESC`

	var trips []*models.Trip
	err := r.db.DB.SelectContext(ctx, &trips, query, driverID)

	if err != nil {
		r.logger.Error("Failed to list trips for driver", "error", err, "driverID", driverID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return trips, nil
}

// UpdateStatusInTx persists the trip's status fields within a transaction
func (r *TripRepository) UpdateStatusInTx(tx Tx, trip *models.Trip) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE trips
		SET status = $1, live_status = $2, customer_confirmed = $3,
			confirmation_time = $4, end_time = $5, updated_at = $6
		WHERE id = $7
	`

	trip.UpdatedAt = models.GetCurrentTime()

	_, err = sqlTx.Exec(
		query,
		trip.Status,
		trip.LiveStatus,
		trip.CustomerConfirmed,
		trip.ConfirmationTime,
		trip.EndTime,
		trip.UpdatedAt,
		trip.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update trip status", "error", err, "tripID", trip.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// AppendRoutePoint appends a GPS sample to the trip's route history. The
// append happens in SQL so concurrent location posts cannot clobber each
// other's history.
func (r *TripRepository) AppendRoutePoint(ctx context.Context, tripID string, point models.RoutePoint) error {
	query := `
		UPDATE trips
		SET route_history = route_history || $1::jsonb, updated_at = $2
		WHERE id = $3
	`

	payload, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	result, err := r.db.DB.ExecContext(ctx, query, payload, models.GetCurrentTime(), tripID)

	if err != nil {
		r.logger.Error("Failed to append route point", "error", err, "tripID", tripID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
