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

// VehicleRepository handles database operations for vehicles
type VehicleRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db *database.Database, logger logger.Logger) *VehicleRepository {
	return &VehicleRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new vehicle into the database
func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, company_id, shop_id, driver_id, plate_number,
							  model, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		vehicle.ID,
		vehicle.CompanyID,
		vehicle.ShopID,
		vehicle.DriverID,
		vehicle.PlateNumber,
		vehicle.Model,
		vehicle.Status,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create vehicle", "error", err, "vehicleID", vehicle.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByDriverID retrieves the vehicle assigned to a driver. Drivers own at
// most one vehicle.
func (r *VehicleRepository) GetByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error) {
	query := `
		SELECT id, company_id, shop_id, driver_id, plate_number, model, status,
			   created_at, updated_at
		FROM vehicles
		WHERE driver_id = $1
	`

	var vehicle models.Vehicle
	err := r.db.DB.GetContext(ctx, &vehicle, query, driverID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get vehicle by driver ID", "error", err, "driverID", driverID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &vehicle, nil
}
