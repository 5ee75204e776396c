package service

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/repository"
)

type txMock struct {
	mock.Mock
}

func (m *txMock) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *txMock) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

type txBeginnerMock struct {
	mock.Mock
}

func (m *txBeginnerMock) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.Tx)
	return tx, args.Error(1)
}

type userStoreMock struct {
	mock.Mock
}

func (m *userStoreMock) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userStoreMock) ListAvailableDrivers(ctx context.Context, companyID string, shopID sql.NullString) ([]models.AvailableDriver, error) {
	args := m.Called(ctx, companyID, shopID)
	drivers, _ := args.Get(0).([]models.AvailableDriver)
	return drivers, args.Error(1)
}

func (m *userStoreMock) GetDriverForUpdateInTx(tx repository.Tx, driverID string) (*models.User, error) {
	args := m.Called(tx, driverID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userStoreMock) UpdateDriverStatusInTx(tx repository.Tx, driverID string, status models.DriverStatus) error {
	args := m.Called(tx, driverID, status)
	return args.Error(0)
}

type vehicleStoreMock struct {
	mock.Mock
}

func (m *vehicleStoreMock) GetByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error) {
	args := m.Called(ctx, driverID)
	vehicle, _ := args.Get(0).(*models.Vehicle)
	return vehicle, args.Error(1)
}

type orderStoreMock struct {
	mock.Mock
}

func (m *orderStoreMock) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *orderStoreMock) GetByIDInTx(tx repository.Tx, id string) (*models.Order, error) {
	args := m.Called(tx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *orderStoreMock) UpdateAssignmentInTx(tx repository.Tx, order *models.Order) error {
	args := m.Called(tx, order)
	return args.Error(0)
}

func (m *orderStoreMock) UpdateStatusInTx(tx repository.Tx, order *models.Order) error {
	args := m.Called(tx, order)
	return args.Error(0)
}

type tripStoreMock struct {
	mock.Mock
}

func (m *tripStoreMock) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	args := m.Called(ctx, id)
	trip, _ := args.Get(0).(*models.Trip)
	return trip, args.Error(1)
}

func (m *tripStoreMock) GetByIDInTx(tx repository.Tx, id string) (*models.Trip, error) {
	args := m.Called(tx, id)
	trip, _ := args.Get(0).(*models.Trip)
	return trip, args.Error(1)
}

func (m *tripStoreMock) ListByDriver(ctx context.Context, driverID string) ([]*models.Trip, error) {
	args := m.Called(ctx, driverID)
	trips, _ := args.Get(0).([]*models.Trip)
	return trips, args.Error(1)
}

func (m *tripStoreMock) GetByOrderIDInTx(tx repository.Tx, orderID string) (*models.Trip, error) {
	args := m.Called(tx, orderID)
	trip, _ := args.Get(0).(*models.Trip)
	return trip, args.Error(1)
}

func (m *tripStoreMock) CreateInTx(tx repository.Tx, trip *models.Trip) error {
	args := m.Called(tx, trip)
	return args.Error(0)
}

func (m *tripStoreMock) UpdateAssignmentInTx(tx repository.Tx, trip *models.Trip) error {
	args := m.Called(tx, trip)
	return args.Error(0)
}

func (m *tripStoreMock) UpdateStatusInTx(tx repository.Tx, trip *models.Trip) error {
	args := m.Called(tx, trip)
	return args.Error(0)
}

func (m *tripStoreMock) AppendRoutePoint(ctx context.Context, tripID string, point models.RoutePoint) error {
	args := m.Called(ctx, tripID, point)
	return args.Error(0)
}

type paymentStoreMock struct {
	mock.Mock
}

func (m *paymentStoreMock) CreateInTx(tx repository.Tx, payment *models.Payment) error {
	args := m.Called(tx, payment)
	return args.Error(0)
}

type outboxStoreMock struct {
	mock.Mock
}

func (m *outboxStoreMock) CreateInTx(tx repository.Tx, message *models.OutboxMessage) error {
	args := m.Called(tx, message)
	return args.Error(0)
}

// notifierRecorder captures realtime emissions for assertions
type notifierRecorder struct {
	emissions []emission
}

type emission struct {
	UserID  string
	Event   string
	Payload interface{}
}

func (n *notifierRecorder) EmitToUser(userID, event string, payload interface{}) {
	n.emissions = append(n.emissions, emission{UserID: userID, Event: event, Payload: payload})
}

func managerIdentity() *auth.Identity {
	return &auth.Identity{
		UserID:    "usr_manager",
		Role:      models.RoleManager,
		CompanyID: sql.NullString{String: "cmp_1", Valid: true},
		SessionID: "ses_1",
	}
}

func driverIdentity(id string) *auth.Identity {
	return &auth.Identity{
		UserID:    id,
		Role:      models.RoleDriver,
		CompanyID: sql.NullString{String: "cmp_1", Valid: true},
		SessionID: "ses_2",
	}
}

func customerIdentity(id string) *auth.Identity {
	return &auth.Identity{
		UserID:    id,
		Role:      models.RoleCustomer,
		SessionID: "ses_3",
	}
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:          "ord_1",
		CompanyID:   "cmp_1",
		CustomerID:  "usr_customer",
		Status:      models.OrderStatusPending,
		Items:       models.OrderItems{{Name: "box", Quantity: 1, Price: 20}},
		Total:       20,
		DeliveryFee: 5,
	}
}

func onlineDriver(id string) *models.User {
	return &models.User{
		ID:           id,
		Name:         "Driver " + id,
		Role:         models.RoleDriver,
		CompanyID:    sql.NullString{String: "cmp_1", Valid: true},
		DriverStatus: models.DriverStatusOnline,
		IsActive:     true,
	}
}

func inProgressTrip() *models.Trip {
	return &models.Trip{
		ID:               "trp_1",
		CompanyID:        "cmp_1",
		OrderID:          "ord_1",
		DriverID:         "usr_d1",
		CustomerID:       "usr_customer",
		Status:           models.TripStatusInProgress,
		LiveStatus:       "On The Way",
		ConfirmationCode: "123456",
		TotalAmount:      20,
		DeliveryFee:      5,
	}
}
