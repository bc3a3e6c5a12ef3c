package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// IncidentRepository is a PostgreSQL implementation of repository.IncidentRepository.
type IncidentRepository struct {
	q Querier
}

// NewIncidentRepository creates a new PostgreSQL incident repository.
func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{q: db}
}

// NewIncidentRepositoryWithTx creates an incident repository using a transaction.
func NewIncidentRepositoryWithTx(tx *sql.Tx) *IncidentRepository {
	return &IncidentRepository{q: tx}
}

const incidentColumns = `id, incident_number, driver_id, shift_id, trip_id, asset_id, type, severity, status,
		occurred_at, description, third_party_name, third_party_contact, third_party_plate, third_party_insurance,
		deductible_amount, photo_urls, footage_url, sla_due_at, sla_breached,
		assigned_to_id, resolved_by_id, resolution_notes, resolved_at, created_at, updated_at`

// Create persists a new incident.
func (r *IncidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (` + incidentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`

	_, err := r.q.ExecContext(ctx, query,
		incident.ID,
		incident.IncidentNumber,
		incident.DriverID,
		nullString(incident.ShiftID),
		nullString(incident.TripID),
		nullString(incident.AssetID),
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.OccurredAt,
		incident.Description,
		nullString(incident.ThirdPartyName),
		nullString(incident.ThirdPartyContact),
		nullString(incident.ThirdPartyPlate),
		nullString(incident.ThirdPartyInsurance),
		incident.DeductibleAmount,
		pq.Array(incident.PhotoURLs),
		nullString(incident.FootageURL),
		nullTime(incident.SLADueAt),
		incident.SLABreached,
		nullString(incident.AssignedToID),
		nullString(incident.ResolvedByID),
		nullString(incident.ResolutionNotes),
		nullTime(incident.ResolvedAt),
		incident.CreatedAt,
		incident.UpdatedAt,
	)
	return err
}

// GetByID retrieves an incident by ID.
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := scanIncident(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return incident, nil
}

// Update updates an existing incident.
func (r *IncidentRepository) Update(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET severity = $1, status = $2, description = $3, deductible_amount = $4,
			photo_urls = $5, footage_url = $6, sla_breached = $7,
			assigned_to_id = $8, resolved_by_id = $9, resolution_notes = $10, resolved_at = $11,
			updated_at = $12
		WHERE id = $13
	`

	result, err := r.q.ExecContext(ctx, query,
		incident.Severity,
		incident.Status,
		incident.Description,
		incident.DeductibleAmount,
		pq.Array(incident.PhotoURLs),
		nullString(incident.FootageURL),
		incident.SLABreached,
		nullString(incident.AssignedToID),
		nullString(incident.ResolvedByID),
		nullString(incident.ResolutionNotes),
		nullTime(incident.ResolvedAt),
		incident.UpdatedAt,
		incident.ID,
	)
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

// List retrieves incidents matching the filter, newest first, with the
// total count of matching rows.
func (r *IncidentRepository) List(ctx context.Context, filter repository.IncidentFilter, limit, offset int) ([]*domain.Incident, int, error) {
	where, args := incidentWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM incidents` + where
	if err := r.q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM incidents%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, incidentColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return incidents, total, nil
}

// NextIncidentNumber returns the next date-scoped incident number. The
// counter row is incremented with an atomic upsert, so concurrent
// creations within the same day each get a distinct sequence value.
func (r *IncidentRepository) NextIncidentNumber(ctx context.Context, day time.Time) (string, error) {
	query := `
		INSERT INTO incident_counters (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = incident_counters.value + 1
		RETURNING value
	`

	var value int
	if err := r.q.QueryRowContext(ctx, query, day.UTC().Format("2006-01-02")).Scan(&value); err != nil {
		return "", err
	}

	return fmt.Sprintf("INC-%s-%04d", day.UTC().Format("20060102"), value), nil
}

func incidentWhere(filter repository.IncidentFilter) (string, []any) {
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
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Severity != 0 {
		add("severity = $%d", filter.Severity)
	}
	if !filter.From.IsZero() {
		add("occurred_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("occurred_at <= $%d", filter.To)
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

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var incident domain.Incident
	var shiftID, tripID, assetID sql.NullString
	var thirdPartyName, thirdPartyContact, thirdPartyPlate, thirdPartyInsurance sql.NullString
	var footageURL, assignedToID, resolvedByID, resolutionNotes sql.NullString
	var slaDueAt, resolvedAt sql.NullTime

	err := row.Scan(
		&incident.ID,
		&incident.IncidentNumber,
		&incident.DriverID,
		&shiftID,
		&tripID,
		&assetID,
		&incident.Type,
		&incident.Severity,
		&incident.Status,
		&incident.OccurredAt,
		&incident.Description,
		&thirdPartyName,
		&thirdPartyContact,
		&thirdPartyPlate,
		&thirdPartyInsurance,
		&incident.DeductibleAmount,
		pq.Array(&incident.PhotoURLs),
		&footageURL,
		&slaDueAt,
		&incident.SLABreached,
		&assignedToID,
		&resolvedByID,
		&resolutionNotes,
		&resolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	incident.ShiftID = shiftID.String
	incident.TripID = tripID.String
	incident.AssetID = assetID.String
	incident.ThirdPartyName = thirdPartyName.String
	incident.ThirdPartyContact = thirdPartyContact.String
	incident.ThirdPartyPlate = thirdPartyPlate.String
	incident.ThirdPartyInsurance = thirdPartyInsurance.String
	incident.FootageURL = footageURL.String
	incident.AssignedToID = assignedToID.String
	incident.ResolvedByID = resolvedByID.String
	incident.ResolutionNotes = resolutionNotes.String
	if slaDueAt.Valid {
		incident.SLADueAt = slaDueAt.Time
	}
	if resolvedAt.Valid {
		incident.ResolvedAt = resolvedAt.Time
	}
	return &incident, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Ensure IncidentRepository implements repository.IncidentRepository.
var _ repository.IncidentRepository = (*IncidentRepository)(nil)
