package repository

import (
	"context"
	"time"

	"fleetops/internal/domain"
)

// IncidentFilter narrows incident listing queries. Zero values mean
// "no filter".
type IncidentFilter struct {
	DriverID string
	Type     domain.IncidentType
	Status   domain.IncidentStatus
	Severity int
	From     time.Time
	To       time.Time
}

// IncidentRepository defines the persistence operations for incidents.
// Incidents are never deleted; resolution is a terminal state, not a
// removal.
type IncidentRepository interface {
	// Create persists a new incident.
	Create(ctx context.Context, incident *domain.Incident) error

	// GetByID retrieves an incident by ID.
	GetByID(ctx context.Context, id string) (*domain.Incident, error)

	// Update updates an existing incident.
	Update(ctx context.Context, incident *domain.Incident) error

	// List retrieves incidents matching the filter, newest first, with
	// the total count of matching rows.
	List(ctx context.Context, filter IncidentFilter, limit, offset int) ([]*domain.Incident, int, error)

	// NextIncidentNumber returns the next human-readable incident
	// number for the given day. The underlying counter increment is
	// atomic, so concurrent creations within the same day never
	// collide.
	NextIncidentNumber(ctx context.Context, day time.Time) (string, error)
}

// IncidentActivityRepository defines the persistence operations for the
// incident audit trail. Activities are append-only.
type IncidentActivityRepository interface {
	// Create appends an activity entry.
	Create(ctx context.Context, activity *domain.IncidentActivity) error

	// ListByIncident retrieves all activities for an incident, oldest
	// first.
	ListByIncident(ctx context.Context, incidentID string) ([]*domain.IncidentActivity, error)
}
