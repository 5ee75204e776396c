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

// UserRepository handles database operations for users, including the
// driver-availability queries used by dispatch.
type UserRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Database, logger logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, phone, role, company_id, shop_id, driver_status,
			   is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.db.DB.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get user by ID", "error", err, "userID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &user, nil
}

// ListAvailableDrivers returns active, non-busy drivers in the given company,
// optionally narrowed to a shop, each joined with their vehicle.
func (r *UserRepository) ListAvailableDrivers(ctx context.Context, companyID string, shopID sql.NullString) ([]models.AvailableDriver, error) {
	query := `
		SELECT u.id, u.name, u.phone, u.driver_status,
			   v.id AS vehicle_id, v.plate_number, v.model AS vehicle_model
		FROM users u
		LEFT JOIN vehicles v ON v.driver_id = u.id
		WHERE u.role = 'driver'
		  AND u.company_id = $1
		  AND u.is_active = TRUE
		  AND u.driver_status NOT IN ('on_trip', 'busy', 'delivering', 'in_progress')
	`
	args := []interface{}{companyID}

	if shopID.Valid {
		query += ` AND u.shop_id = $2`
		args = append(args, shopID.String)
	}

	query += ` ORDER BY u.name ASC`

	type row struct {
		ID           string               `db:"id"`
		Name         string               `db:"name"`
		Phone        string               `db:"phone"`
		DriverStatus models.DriverStatus  `db:"driver_status"`
		VehicleID    sql.NullString       `db:"vehicle_id"`
		PlateNumber  sql.NullString       `db:"plate_number"`
		VehicleModel sql.NullString       `db:"vehicle_model"`
	}

	var rows []row
	err := r.db.DB.SelectContext(ctx, &rows, query, args...)

	if err != nil {
		r.logger.Error("Failed to list available drivers", "error", err, "companyID", companyID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	drivers := make([]models.AvailableDriver, 0, len(rows))

	for _, rw := range rows {
		d := models.AvailableDriver{
			Driver: models.DriverSummary{
				ID:     rw.ID,
				Name:   rw.Name,
				Phone:  rw.Phone,
				Status: rw.DriverStatus,
			},
		}

		if rw.VehicleID.Valid {
			d.Vehicle = &models.VehicleSummary{
				ID:          rw.VehicleID.String,
				PlateNumber: rw.PlateNumber.String,
				Model:       rw.VehicleModel.String,
			}
		}

		drivers = append(drivers, d)
	}

	return drivers, nil
}

// GetDriverForUpdateInTx locks the driver row for the duration of the
// transaction and returns it. The lock closes the window between listing a
// driver as available and assigning them.
func (r *UserRepository) GetDriverForUpdateInTx(tx Tx, driverID string) (*models.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, email, phone, role, company_id, shop_id, driver_status,
			   is_active, created_at, updated_at
		FROM users
		WHERE id = $1 AND role = 'driver'
		FOR UPDATE
	`

	var user models.User
	err = sqlTx.Get(&user, query, driverID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to lock driver row", "error", err, "driverID", driverID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &user, nil
}

// UpdateDriverStatusInTx sets the driver's availability status within a transaction
func (r *UserRepository) UpdateDriverStatusInTx(tx Tx, driverID string, status models.DriverStatus) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET driver_status = $1, updated_at = $2
		WHERE id = $3 AND role = 'driver'
	`

	_, err = sqlTx.Exec(query, status, models.GetCurrentTime(), driverID)

	if err != nil {
		r.logger.Error("Failed to update driver status", "error", err, "driverID", driverID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Create inserts a new user into the database
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, role, company_id, shop_id,
						   driver_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.CompanyID,
		user.ShopID,
		user.DriverStatus,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create user", "error", err, "userID", user.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
