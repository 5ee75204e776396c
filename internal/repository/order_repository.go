package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetgo/dispatch-api/internal/database"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new order into the database
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, company_id, shop_id, customer_id, driver_id,
							vehicle_id, trip_id, status, pickup, dropoff, items,
							total, delivery_fee, timeline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		order.ID,
		order.CompanyID,
		order.ShopID,
		order.CustomerID,
		order.DriverID,
		order.VehicleID,
		order.TripID,
		order.Status,
		order.Pickup,
		order.Dropoff,
		order.Items,
		order.Total,
		order.DeliveryFee,
		order.Timeline,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, company_id, shop_id, customer_id, driver_id, vehicle_id,
			   trip_id, status, pickup, dropoff, items, total, delivery_fee,
			   timeline, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetByIDInTx retrieves an order by its ID within a transaction
func (r *OrderRepository) GetByIDInTx(tx Tx, id string) (*models.Order, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, company_id, shop_id, customer_id, driver_id, vehicle_id,
			   trip_id, status, pickup, dropoff, items, total, delivery_fee,
			   timeline, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var order models.Order
	err = sqlTx.Get(&order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order in transaction", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// UpdateAssignmentInTx binds the driver, vehicle and trip onto the order
// within a transaction.
func (r *OrderRepository) UpdateAssignmentInTx(tx Tx, order *models.Order) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET driver_id = $1, vehicle_id = $2, trip_id = $3, status = $4,
			timeline = $5, updated_at = $6
		WHERE id = $7
	`

	order.UpdatedAt = models.GetCurrentTime()

	_, err = sqlTx.Exec(
		query,
		order.DriverID,
		order.VehicleID,
		order.TripID,
		order.Status,
		order.Timeline,
		order.UpdatedAt,
		order.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update order assignment", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateStatusInTx persists the order's status and timeline within a transaction
func (r *OrderRepository) UpdateStatusInTx(tx Tx, order *models.Order) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $1, timeline = $2, updated_at = $3
		WHERE id = $4
	`

	order.UpdatedAt = models.GetCurrentTime()

	_, err = sqlTx.Exec(query, order.Status, order.Timeline, order.UpdatedAt, order.ID)

	if err != nil {
		r.logger.Error("Failed to update order status", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
