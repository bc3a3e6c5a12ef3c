package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// ShiftRepository is a PostgreSQL implementation of repository.ShiftRepository.
type ShiftRepository struct {
	q Querier
}

// NewShiftRepository creates a new PostgreSQL shift repository.
func NewShiftRepository(db *sql.DB) *ShiftRepository {
	return &ShiftRepository{q: db}
}

// NewShiftRepositoryWithTx creates a shift repository using a transaction.
func NewShiftRepositoryWithTx(tx *sql.Tx) *ShiftRepository {
	return &ShiftRepository{q: tx}
}

// GetByID retrieves a shift by ID.
func (r *ShiftRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	query := `
		SELECT id, driver_id, status, has_incident, started_at, ended_at
		FROM shifts WHERE id = $1
	`

	var shift domain.Shift
	var endedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&shift.ID,
		&shift.DriverID,
		&shift.Status,
		&shift.HasIncident,
		&shift.StartedAt,
		&endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		shift.EndedAt = endedAt.Time
	}
	return &shift, nil
}

// MarkHasIncident flags a shift as having had an incident.
func (r *ShiftRepository) MarkHasIncident(ctx context.Context, id string) error {
	query := `UPDATE shifts SET has_incident = TRUE WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id)
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

// Ensure ShiftRepository implements repository.ShiftRepository.
var _ repository.ShiftRepository = (*ShiftRepository)(nil)
