package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByPhone retrieves a driver by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// GetForUpdate retrieves a driver and locks its row for the
	// duration of the surrounding transaction. Callers must hold the
	// lock across the read-balance, write-transaction, write-balance
	// sequence so concurrent posts against the same driver serialize.
	GetForUpdate(ctx context.Context, id string) (*domain.Driver, error)

	// UpdateBondBalance sets the denormalized balance field. Only the
	// ledger posting path may call this.
	UpdateBondBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// UpdateStatus updates the status of a driver.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error
}
