package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// IncidentService owns incident field mutation and the lifecycle state
// machine. Creation goes through the DeductionService so that the
// classification rule and its financial consequence commit together.
type IncidentService struct {
	uow          repository.UnitOfWork
	incidentRepo repository.IncidentRepository
	activityRepo repository.IncidentActivityRepository
	userRepo     repository.UserRepository
	sla          *SLAClock
	log          *logrus.Logger
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(
	uow repository.UnitOfWork,
	incidentRepo repository.IncidentRepository,
	activityRepo repository.IncidentActivityRepository,
	userRepo repository.UserRepository,
	sla *SLAClock,
	log *logrus.Logger,
) *IncidentService {
	if log == nil {
		log = logrus.New()
	}
	return &IncidentService{
		uow:          uow,
		incidentRepo: incidentRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		sla:          sla,
		log:          log,
	}
}

// GetIncident retrieves an incident by ID.
func (s *IncidentService) GetIncident(ctx context.Context, incidentID string) (*domain.Incident, error) {
	if incidentID == "" {
		return nil, ErrInvalidIncidentID
	}
	return s.incidentRepo.GetByID(ctx, incidentID)
}

// ListIncidents retrieves incidents matching the filter, newest first.
func (s *IncidentService) ListIncidents(ctx context.Context, filter repository.IncidentFilter, page, pageSize int) ([]*domain.Incident, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.incidentRepo.List(ctx, filter, limit, offset)
}

// ListActivities retrieves the audit trail for an incident, oldest
// first.
func (s *IncidentService) ListActivities(ctx context.Context, incidentID string) ([]*domain.IncidentActivity, error) {
	if incidentID == "" {
		return nil, ErrInvalidIncidentID
	}
	if _, err := s.incidentRepo.GetByID(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByIncident(ctx, incidentID)
}

// AssignRequest contains the parameters for assigning an incident.
type AssignRequest struct {
	IncidentID string
	UserID     string
	Actor      string
}

// Assign sets the incident's assignee and forces the status to
// Investigating, whatever non-terminal state it was in.
func (s *IncidentService) Assign(ctx context.Context, req AssignRequest) (*domain.Incident, error) {
	if req.IncidentID == "" {
		return nil, ErrInvalidIncidentID
	}
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}

	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	var updated *domain.Incident
	err := s.uow.Within(ctx, func(repos repository.Repos) error {
		incident, err := repos.Incidents.GetByID(ctx, req.IncidentID)
		if err != nil {
			return err
		}
		if incident.Resolved() {
			return ErrIncidentResolved
		}

		previous := incident.AssignedToID
		if previous == "" {
			previous = "Unassigned"
		}

		incident.AssignedToID = req.UserID
		incident.Status = domain.IncidentStatusInvestigating
		incident.UpdatedAt = time.Now().UTC()

		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}

		activity := newActivity(incident.ID, domain.ActivityTypeAssigned, req.Actor)
		activity.Description = fmt.Sprintf("Assigned from %s to %s", previous, req.UserID)
		activity.OldValue = previous
		activity.NewValue = req.UserID
		if err := repos.Activities.Create(ctx, activity); err != nil {
			return err
		}

		updated = incident
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// EscalateRequest contains the parameters for escalating an incident.
type EscalateRequest struct {
	IncidentID string
	Actor      string
	Reason     string
}

// Escalate raises the incident's priority by one step. Severity never
// goes below 1; escalating an incident already at maximum priority
// fails. Only an Open incident changes status to Escalated; an
// incident already under investigation or audit keeps its status and
// just gets the severity bump.
func (s *IncidentService) Escalate(ctx context.Context, req EscalateRequest) (*domain.Incident, error) {
	if req.IncidentID == "" {
		return nil, ErrInvalidIncidentID
	}

	var updated *domain.Incident
	err := s.uow.Within(ctx, func(repos repository.Repos) error {
		incident, err := repos.Incidents.GetByID(ctx, req.IncidentID)
		if err != nil {
			return err
		}
		if incident.Resolved() {
			return ErrIncidentResolved
		}
		if incident.Severity <= domain.SeverityHighest {
			return ErrSeverityAtMaximum
		}

		oldSeverity := incident.Severity
		incident.Severity--
		if incident.Status == domain.IncidentStatusOpen {
			incident.Status = domain.IncidentStatusEscalated
		}
		incident.UpdatedAt = time.Now().UTC()

		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}

		activity := newActivity(incident.ID, domain.ActivityTypeEscalated, req.Actor)
		activity.Description = fmt.Sprintf("Escalated from severity %d to %d", oldSeverity, incident.Severity)
		if req.Reason != "" {
			activity.Description += ": " + req.Reason
		}
		activity.OldValue = fmt.Sprintf("%d", oldSeverity)
		activity.NewValue = fmt.Sprintf("%d", incident.Severity)
		if err := repos.Activities.Create(ctx, activity); err != nil {
			return err
		}

		updated = incident
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ResolveRequest contains the parameters for resolving an incident.
type ResolveRequest struct {
	IncidentID   string
	Notes        string
	ResolvedByID string
}

// Resolve moves the incident to its terminal state. SLA breach is
// evaluated here, once, against the deadline stored at creation; the
// flag is never recomputed afterwards. Resolving an already resolved
// incident fails.
func (s *IncidentService) Resolve(ctx context.Context, req ResolveRequest) (*domain.Incident, error) {
	if req.IncidentID == "" {
		return nil, ErrInvalidIncidentID
	}
	if req.Notes == "" {
		return nil, ErrMissingResolutionNotes
	}

	var updated *domain.Incident
	err := s.uow.Within(ctx, func(repos repository.Repos) error {
		incident, err := repos.Incidents.GetByID(ctx, req.IncidentID)
		if err != nil {
			return err
		}
		if incident.Resolved() {
			return ErrIncidentResolved
		}

		now := time.Now().UTC()
		oldStatus := incident.Status

		incident.Status = domain.IncidentStatusResolved
		incident.SLABreached = s.sla.IsBreached(incident.SLADueAt, now)
		incident.ResolvedAt = now
		incident.ResolvedByID = req.ResolvedByID
		incident.ResolutionNotes = req.Notes
		incident.UpdatedAt = now

		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}

		activity := newActivity(incident.ID, domain.ActivityTypeResolved, req.ResolvedByID)
		activity.Description = "Incident resolved"
		if incident.SLABreached {
			activity.Description = "Incident resolved after SLA deadline"
		}
		activity.OldValue = string(oldStatus)
		activity.NewValue = string(domain.IncidentStatusResolved)
		if err := repos.Activities.Create(ctx, activity); err != nil {
			return err
		}

		updated = incident
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// EvidenceRequest contains the parameters for attaching evidence.
type EvidenceRequest struct {
	IncidentID string
	PhotoURLs  []string
	FootageURL string
	Actor      string
}

// AddEvidence appends photo URLs (existing ones are never removed) and
// replaces the footage URL only when a new one is supplied.
func (s *IncidentService) AddEvidence(ctx context.Context, req EvidenceRequest) (*domain.Incident, error) {
	if req.IncidentID == "" {
		return nil, ErrInvalidIncidentID
	}

	var updated *domain.Incident
	err := s.uow.Within(ctx, func(repos repository.Repos) error {
		incident, err := repos.Incidents.GetByID(ctx, req.IncidentID)
		if err != nil {
			return err
		}

		added := len(req.PhotoURLs)
		incident.PhotoURLs = append(incident.PhotoURLs, req.PhotoURLs...)
		if req.FootageURL != "" {
			incident.FootageURL = req.FootageURL
			added++
		}
		incident.UpdatedAt = time.Now().UTC()

		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}

		activity := newActivity(incident.ID, domain.ActivityTypeEvidenceAdded, req.Actor)
		activity.Description = fmt.Sprintf("%d evidence item(s) added", added)
		if err := repos.Activities.Create(ctx, activity); err != nil {
			return err
		}

		updated = incident
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// newActivity builds an audit-trail entry with the common fields set.
func newActivity(incidentID string, activityType domain.ActivityType, actor string) *domain.IncidentActivity {
	return &domain.IncidentActivity{
		ID:           uuid.New().String(),
		IncidentID:   incidentID,
		ActivityType: activityType,
		CreatedByID:  actor,
		CreatedAt:    time.Now().UTC(),
	}
}
