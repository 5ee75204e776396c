package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetgo/dispatch-api/internal/models"
)

// SeedOwner creates the bootstrap owner account when OWNER_EMAIL is
// configured and no owner-role user exists yet. Elevated access is granted
// here, at startup, by configuration only; no request path inspects email
// addresses to decide roles.
func (d *Database) SeedOwner(ctx context.Context, ownerEmail string) error {
	if ownerEmail == "" {
		return nil
	}

	var existing string
	err := d.DB.GetContext(ctx, &existing, `SELECT id FROM users WHERE role = $1 LIMIT 1`, models.RoleOwner)

	if err == nil {
		return nil // An owner already exists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for existing owner: %w", err)
	}

	now := models.GetCurrentTime()
	_, err = d.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (email) DO NOTHING
	`, models.GenerateID("usr"), "Platform Owner", ownerEmail, models.RoleOwner, now)

	if err != nil {
		return fmt.Errorf("failed to seed owner account: %w", err)
	}

	d.logger.Info("Seeded bootstrap owner account", "email", ownerEmail)
	return nil
}
