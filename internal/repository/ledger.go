package repository

import (
	"context"
	"time"

	"fleetops/internal/domain"
)

// TransactionFilter narrows ledger history queries. Zero values mean
// "no filter".
type TransactionFilter struct {
	DriverID string
	Type     domain.TransactionType
	From     time.Time
	To       time.Time
}

// LedgerRepository defines the persistence operations for bond ledger
// transactions. The ledger is append-only: there are no update or
// delete operations.
type LedgerRepository interface {
	// Create appends a transaction. Returns ErrDuplicateReference if a
	// transaction with the same (driver, reference type, reference id)
	// incident reference already exists.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByReference retrieves the transaction for a given reference.
	// Returns nil if none exists.
	GetByReference(ctx context.Context, driverID string, refType domain.ReferenceType, refID string) (*domain.Transaction, error)

	// ListByDriver retrieves all transactions for a driver in creation
	// order, oldest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Transaction, error)

	// List retrieves transactions matching the filter, newest first,
	// with the total count of matching rows.
	List(ctx context.Context, filter TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error)
}
