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

// DeadLetterRepository handles database operations for dead letter messages
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new dead letter message into the database
func (r *DeadLetterRepository) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	query := `
		INSERT INTO dead_letter_messages (
			original_message_id, aggregate_type, aggregate_id, event_type,
			payload, error_message, failure_reason, retry_count, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id
	`

	var id int64

	err := r.db.DB.QueryRowContext(
		ctx,
		query,
		message.OriginalMessageID,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.ErrorMessage,
		message.FailureReason,
		message.RetryCount,
		message.Status,
		message.CreatedAt,
	).Scan(&id)

	if err != nil {
		r.logger.Error("Failed to create dead letter message", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	message.ID = id
	return nil
}

// GetMessage retrieves a dead letter message by ID
func (r *DeadLetterRepository) GetMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	query := `
		SELECT id, original_message_id, aggregate_type, aggregate_id, event_type,
			   payload, error_message, failure_reason, retry_count, last_retry_at,
			   status, created_at, resolved_at
		FROM dead_letter_messages
		WHERE id = $1
	`

	var message models.DeadLetterMessage
	err := r.db.DB.GetContext(ctx, &message, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get dead letter message", "error", err, "messageID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &message, nil
}

// GetPendingMessages retrieves dead letter messages awaiting operator action
func (r *DeadLetterRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	query := `
		SELECT id, original_message_id, aggregate_type, aggregate_id, event_type,
			   payload, error_message, failure_reason, retry_count, last_retry_at,
			   status, created_at, resolved_at
		FROM dead_letter_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	var messages []*models.DeadLetterMessage

	err := r.db.DB.SelectContext(
		ctx,
		&messages,
		query,
		models.DeadLetterStatusPending,
		limit,
	)

	if err != nil {
		r.logger.Error("Failed to get pending dead letter messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// MarkAsRetrying updates the status of a dead letter message to retrying
func (r *DeadLetterRepository) MarkAsRetrying(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, retry_count = retry_count + 1, last_retry_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		models.DeadLetterStatusRetrying,
		models.GetCurrentTime(),
		id,
	)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as retrying", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkAsResolved updates the status of a dead letter message to resolved
func (r *DeadLetterRepository) MarkAsResolved(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		models.DeadLetterStatusResolved,
		models.GetCurrentTime(),
		id,
	)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as resolved", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkAsDiscarded updates the status of a dead letter message to discarded
func (r *DeadLetterRepository) MarkAsDiscarded(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1, failure_reason = $2, resolved_at = $3
		WHERE id = $4
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		models.DeadLetterStatusDiscarded,
		reason,
		models.GetCurrentTime(),
		id,
	)

	if err != nil {
		r.logger.Error("Failed to mark dead letter message as discarded", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// ResetToRetry puts a dead letter message back in the pending state so the
// processor will pick it up again.
func (r *DeadLetterRepository) ResetToRetry(ctx context.Context, id int64) error {
	query := `
		UPDATE dead_letter_messages
		SET status = $1
		WHERE id = $2 AND status != $3
	`

	result, err := r.db.DB.ExecContext(
		ctx,
		query,
		models.DeadLetterStatusPending,
		id,
		models.DeadLetterStatusResolved,
	)

	if err != nil {
		r.logger.Error("Failed to reset dead letter message", "error", err, "messageID", id)
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
