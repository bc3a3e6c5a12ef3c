package repository

import (
	"context"

	"fleetops/internal/domain"
)

// ShiftRepository defines the persistence operations for shifts needed
// by the incident workflow.
type ShiftRepository interface {
	// GetByID retrieves a shift by ID.
	GetByID(ctx context.Context, id string) (*domain.Shift, error)

	// MarkHasIncident flags a shift as having had an incident.
	MarkHasIncident(ctx context.Context, id string) error
}
