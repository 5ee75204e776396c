package service

import (
	"context"
	"database/sql"

	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/repository"
)

// The services depend on narrow store interfaces rather than the concrete
// repositories so the dispatch flows can be exercised without a database.

// TxBeginner starts database transactions
type TxBeginner interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
}

// UserStore is the driver/user persistence surface used by dispatch
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListAvailableDrivers(ctx context.Context, companyID string, shopID sql.NullString) ([]models.AvailableDriver, error)
	GetDriverForUpdateInTx(tx repository.Tx, driverID string) (*models.User, error)
	UpdateDriverStatusInTx(tx repository.Tx, driverID string, status models.DriverStatus) error
}

// VehicleStore is the vehicle persistence surface used by dispatch
type VehicleStore interface {
	GetByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error)
}

// OrderStore is the order persistence surface used by dispatch
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByIDInTx(tx repository.Tx, id string) (*models.Order, error)
	UpdateAssignmentInTx(tx repository.Tx, order *models.Order) error
	UpdateStatusInTx(tx repository.Tx, order *models.Order) error
}

// TripStore is the trip persistence surface used by dispatch
type TripStore interface {
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	GetByIDInTx(tx repository.Tx, id string) (*models.Trip, error)
	ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error)
	GetByOrderIDInTx(tx repository.Tx, orderID string) (*models.Trip, error)
	CreateInTx(tx repository.Tx, trip *models.Trip) error
	UpdateAssignmentInTx(tx repository.Tx, trip *models.Trip) error
	UpdateStatusInTx(tx repository.Tx, trip *models.Trip) error
	AppendRoutePoint(ctx context.Context, tripID string, point models.RoutePoint) error
}

// PaymentStore is the payment persistence surface used by dispatch
type PaymentStore interface {
	CreateInTx(tx repository.Tx, payment *models.Payment) error
}

// OutboxStore writes dispatch events alongside the state changes they describe
type OutboxStore interface {
	CreateInTx(tx repository.Tx, message *models.OutboxMessage) error
}
