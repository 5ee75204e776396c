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

// SessionRepository handles database operations for login sessions
type SessionRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.Database, logger logger.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new session into the database
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create session", "error", err, "sessionID", session.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, revoked_at, created_at
		FROM sessions
		WHERE id = $1
	`

	var session models.Session
	err := r.db.DB.GetContext(ctx, &session, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get session by ID", "error", err, "sessionID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &session, nil
}

// Revoke marks a session as revoked
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE sessions
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to revoke session", "error", err, "sessionID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
