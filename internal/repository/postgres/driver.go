package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, COALESCE(name, ''), COALESCE(phone, ''), status, bond_balance, bond_required, created_at`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, phone, status, bond_balance, bond_required, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.Status,
		driver.BondBalance,
		driver.BondRequired,
		driver.CreatedAt,
	)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	return r.scanDriver(r.q.QueryRowContext(ctx, query, id))
}

// GetByPhone retrieves a driver by phone number.
func (r *DriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE phone = $1`
	return r.scanDriver(r.q.QueryRowContext(ctx, query, phone))
}

// GetForUpdate retrieves a driver and locks its row until the
// surrounding transaction ends. Concurrent balance posts against the
// same driver block here instead of reading a stale balance.
func (r *DriverRepository) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1 FOR UPDATE`
	return r.scanDriver(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(
			&driver.ID,
			&driver.Name,
			&driver.Phone,
			&driver.Status,
			&driver.BondBalance,
			&driver.BondRequired,
			&driver.CreatedAt,
		); err != nil {
			return nil, err
		}
		drivers = append(drivers, &driver)
	}
	return drivers, rows.Err()
}

// UpdateBondBalance sets the denormalized balance field.
func (r *DriverRepository) UpdateBondBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	query := `UPDATE drivers SET bond_balance = $1 WHERE id = $2`
	return r.execExpectingRow(ctx, query, balance, id)
}

// UpdateStatus updates the status of a driver.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	query := `UPDATE drivers SET status = $1 WHERE id = $2`
	return r.execExpectingRow(ctx, query, status, id)
}

func (r *DriverRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *DriverRepository) scanDriver(row *sql.Row) (*domain.Driver, error) {
	var driver domain.Driver
	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Status,
		&driver.BondBalance,
		&driver.BondRequired,
		&driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
