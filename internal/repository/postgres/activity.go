package postgres

import (
	"context"
	"database/sql"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// IncidentActivityRepository is a PostgreSQL implementation of
// repository.IncidentActivityRepository.
type IncidentActivityRepository struct {
	q Querier
}

// NewIncidentActivityRepository creates a new PostgreSQL activity repository.
func NewIncidentActivityRepository(db *sql.DB) *IncidentActivityRepository {
	return &IncidentActivityRepository{q: db}
}

// NewIncidentActivityRepositoryWithTx creates an activity repository using a transaction.
func NewIncidentActivityRepositoryWithTx(tx *sql.Tx) *IncidentActivityRepository {
	return &IncidentActivityRepository{q: tx}
}

// Create appends an activity entry.
func (r *IncidentActivityRepository) Create(ctx context.Context, activity *domain.IncidentActivity) error {
	query := `
		INSERT INTO incident_activities (id, incident_id, activity_type, description, old_value, new_value, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		activity.ID,
		activity.IncidentID,
		activity.ActivityType,
		activity.Description,
		nullString(activity.OldValue),
		nullString(activity.NewValue),
		nullString(activity.CreatedByID),
		activity.CreatedAt,
	)
	return err
}

// ListByIncident retrieves all activities for an incident, oldest first.
func (r *IncidentActivityRepository) ListByIncident(ctx context.Context, incidentID string) ([]*domain.IncidentActivity, error) {
	query := `
		SELECT id, incident_id, activity_type, description, old_value, new_value, created_by_id, created_at
		FROM incident_activities
		WHERE incident_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*domain.IncidentActivity
	for rows.Next() {
		var activity domain.IncidentActivity
		var oldValue, newValue, createdByID sql.NullString

		if err := rows.Scan(
			&activity.ID,
			&activity.IncidentID,
			&activity.ActivityType,
			&activity.Description,
			&oldValue,
			&newValue,
			&createdByID,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}

		activity.OldValue = oldValue.String
		activity.NewValue = newValue.String
		activity.CreatedByID = createdByID.String
		activities = append(activities, &activity)
	}
	return activities, rows.Err()
}

// Ensure IncidentActivityRepository implements repository.IncidentActivityRepository.
var _ repository.IncidentActivityRepository = (*IncidentActivityRepository)(nil)
