package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fleetgo/dispatch-api/internal/config"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations runs database migrations
func (d *Database) RunMigrations() error {
	// Tables are created directly for initial setup. A real deployment would
	// use a migration tool.
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(40) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL,
		company_id VARCHAR(50),
		shop_id VARCHAR(50),
		driver_status VARCHAR(20) NOT NULL DEFAULT 'offline',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_company_role ON users(company_id, role);
	CREATE INDEX IF NOT EXISTS idx_users_driver_status ON users(driver_status);

	CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

	CREATE TABLE IF NOT EXISTS vehicles (
		id VARCHAR(50) PRIMARY KEY,
		company_id VARCHAR(50) NOT NULL,
		shop_id VARCHAR(50),
		driver_id VARCHAR(50) NOT NULL UNIQUE,
		plate_number VARCHAR(40) NOT NULL UNIQUE,
		model VARCHAR(120) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		company_id VARCHAR(50) NOT NULL,
		shop_id VARCHAR(50),
		customer_id VARCHAR(50) NOT NULL,
		driver_id VARCHAR(50),
		vehicle_id VARCHAR(50),
		trip_id VARCHAR(50),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		pickup JSONB NOT NULL,
		dropoff JSONB NOT NULL,
		items JSONB NOT NULL DEFAULT '[]',
		total DECIMAL(10, 2) NOT NULL DEFAULT 0,
		delivery_fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
		timeline JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_company ON orders(company_id);
	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS trips (
		id VARCHAR(50) PRIMARY KEY,
		company_id VARCHAR(50) NOT NULL,
		order_id VARCHAR(50) NOT NULL,
		driver_id VARCHAR(50) NOT NULL,
		customer_id VARCHAR(50) NOT NULL,
		vehicle_id VARCHAR(50),
		status VARCHAR(20) NOT NULL DEFAULT 'assigned',
		live_status VARCHAR(80) NOT NULL DEFAULT '',
		confirmation_code VARCHAR(10) NOT NULL,
		customer_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		confirmation_time TIMESTAMP,
		order_items JSONB NOT NULL DEFAULT '[]',
		total_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
		delivery_fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
		pickup JSONB NOT NULL,
		dropoff JSONB NOT NULL,
		route_history JSONB NOT NULL DEFAULT '[]',
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_trips_order ON trips(order_id);
	CREATE INDEX IF NOT EXISTS idx_trips_driver_status ON trips(driver_id, status);
	CREATE INDEX IF NOT EXISTS idx_trips_customer ON trips(customer_id);

	CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(50) PRIMARY KEY,
		company_id VARCHAR(50) NOT NULL,
		order_id VARCHAR(50) NOT NULL,
		trip_id VARCHAR(50) NOT NULL,
		customer_id VARCHAR(50) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		method VARCHAR(30) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		collected_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_payments_trip ON payments(trip_id);

	-- Outbox table for dispatch event publishing
	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);

	CREATE TABLE IF NOT EXISTS dead_letter_messages (
		id SERIAL PRIMARY KEY,
		original_message_id BIGINT NOT NULL,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		error_message TEXT NOT NULL,
		failure_reason TEXT NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		last_retry_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letter_status ON dead_letter_messages(status);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
