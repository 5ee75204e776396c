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

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *database.Database, logger logger.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// CreateInTx inserts a new payment within a transaction
func (r *PaymentRepository) CreateInTx(tx Tx, payment *models.Payment) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (id, company_id, order_id, trip_id, customer_id,
							  amount, method, status, collected_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = sqlTx.Exec(
		query,
		payment.ID,
		payment.CompanyID,
		payment.OrderID,
		payment.TripID,
		payment.CustomerID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.CollectedAt,
		payment.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create payment", "error", err, "paymentID", payment.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByTripID retrieves the payment for a trip
func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) (*models.Payment, error) {
	query := `
		SELECT id, company_id, order_id, trip_id, customer_id, amount, method,
			   status, collected_at, created_at
		FROM payments
		WHERE trip_id = $1
	`

	var payment models.Payment
	err := r.db.DB.GetContext(ctx, &payment, query, tripID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get payment by trip ID", "error", err, "tripID", tripID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &payment, nil
}
