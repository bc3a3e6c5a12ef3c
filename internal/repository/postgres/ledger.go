package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// pqUniqueViolation is the PostgreSQL error code for a unique
// constraint violation.
const pqUniqueViolation = "23505"

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

const transactionColumns = `id, driver_id, type, amount, balance_after, reference_type, reference_id, description, created_by, created_at`

// Create appends a transaction. The partial unique index on
// (driver_id, reference_type, reference_id) makes the insert itself the
// idempotency check for incident references: a violation maps to
// ErrDuplicateReference.
func (r *LedgerRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO bond_transactions (id, driver_id, type, amount, balance_after, reference_type, reference_id, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.DriverID,
		tx.Type,
		tx.Amount,
		tx.BalanceAfter,
		nullString(string(tx.ReferenceType)),
		nullString(tx.ReferenceID),
		nullString(tx.Description),
		nullString(tx.CreatedBy),
		tx.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return repository.ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetByReference retrieves the transaction for a given reference.
// Returns nil if none exists.
func (r *LedgerRepository) GetByReference(ctx context.Context, driverID string, refType domain.ReferenceType, refID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bond_transactions
		WHERE driver_id = $1 AND reference_type = $2 AND reference_id = $3
	`

	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, driverID, refType, refID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

// ListByDriver retrieves all transactions for a driver, oldest first.
func (r *LedgerRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bond_transactions
		WHERE driver_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// List retrieves transactions matching the filter, newest first, with
// the total count of matching rows.
func (r *LedgerRepository) List(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error) {
	where, args := transactionWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM bond_transactions` + where
	if err := r.q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bond_transactions%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, transactionColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func transactionWhere(filter repository.TransactionFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.DriverID != "" {
		add("driver_id = $%d", filter.DriverID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}

	where := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var refType, refID, description, createdBy sql.NullString

	err := row.Scan(
		&tx.ID,
		&tx.DriverID,
		&tx.Type,
		&tx.Amount,
		&tx.BalanceAfter,
		&refType,
		&refID,
		&description,
		&createdBy,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.ReferenceType = domain.ReferenceType(refType.String)
	tx.ReferenceID = refID.String
	tx.Description = description.String
	tx.CreatedBy = createdBy.String
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure LedgerRepository implements repository.LedgerRepository.
var _ repository.LedgerRepository = (*LedgerRepository)(nil)
