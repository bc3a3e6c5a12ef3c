package postgres

import (
	"context"
	"database/sql"

	"fleetops/internal/repository"
)

// UnitOfWork is a PostgreSQL implementation of repository.UnitOfWork
// backed by a database transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a new PostgreSQL unit of work.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Within runs fn inside a single database transaction with
// transaction-scoped repositories. Any error rolls the whole unit back.
func (u *UnitOfWork) Within(ctx context.Context, fn func(repos repository.Repos) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := repository.Repos{
		Drivers:    NewDriverRepositoryWithTx(tx),
		Ledger:     NewLedgerRepositoryWithTx(tx),
		Incidents:  NewIncidentRepositoryWithTx(tx),
		Activities: NewIncidentActivityRepositoryWithTx(tx),
		Shifts:     NewShiftRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Ensure UnitOfWork implements repository.UnitOfWork.
var _ repository.UnitOfWork = (*UnitOfWork)(nil)
