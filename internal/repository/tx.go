package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleetgo/dispatch-api/internal/database"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
)

// Tx represents a database transaction handle passed between repositories.
type Tx interface {
	Commit() error
	Rollback() error
}

type sqlxTx struct {
	*sqlx.Tx
}

// unwrap extracts the underlying sqlx transaction from a Tx handle.
func unwrap(tx Tx) (*sqlx.Tx, error) {
	st, ok := tx.(*sqlxTx)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected transaction type %T", ErrDatabase, tx)
	}
	return st.Tx, nil
}

// TxManager begins database transactions for multi-table operations.
type TxManager struct {
	db *database.Database
}

// NewTxManager creates a new TxManager
func NewTxManager(db *database.Database) *TxManager {
	return &TxManager{db: db}
}

// BeginTx starts a new transaction
func (m *TxManager) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := m.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return &sqlxTx{tx}, nil
}
