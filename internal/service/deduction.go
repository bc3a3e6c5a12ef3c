package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fleetops/internal/domain"
	"fleetops/internal/redis"
	"fleetops/internal/repository"
)

// incidentLockTTL bounds how long the advisory deduction lock is held
// if a caller dies before releasing it.
const incidentLockTTL = 30 * time.Second

// DeductionService coordinates incident creation with its financial
// consequence. It is the only component that writes to both the
// incident and driver-balance aggregates, and it always does so in a
// single atomic unit of work.
type DeductionService struct {
	uow          repository.UnitOfWork
	driverRepo   repository.DriverRepository
	shiftRepo    repository.ShiftRepository
	incidentRepo repository.IncidentRepository
	lock         redis.LockStoreInterface
	cache        redis.BondCacheInterface
	sla          *SLAClock
	log          *logrus.Logger
}

// NewDeductionService creates a new DeductionService. lock and cache
// may be nil.
func NewDeductionService(
	uow repository.UnitOfWork,
	driverRepo repository.DriverRepository,
	shiftRepo repository.ShiftRepository,
	incidentRepo repository.IncidentRepository,
	lock redis.LockStoreInterface,
	cache redis.BondCacheInterface,
	sla *SLAClock,
	log *logrus.Logger,
) *DeductionService {
	if log == nil {
		log = logrus.New()
	}
	return &DeductionService{
		uow:          uow,
		driverRepo:   driverRepo,
		shiftRepo:    shiftRepo,
		incidentRepo: incidentRepo,
		lock:         lock,
		cache:        cache,
		sla:          sla,
		log:          log,
	}
}

// CreateIncidentRequest contains the parameters for filing an incident.
type CreateIncidentRequest struct {
	DriverID            string
	ShiftID             string
	TripID              string
	AssetID             string
	Type                domain.IncidentType
	Severity            int
	OccurredAt          time.Time
	Description         string
	ThirdPartyName      string
	ThirdPartyContact   string
	ThirdPartyPlate     string
	ThirdPartyInsurance string
	Actor               string
}

// CreateIncident files an incident, classifies it, and — when the
// classification demands it — posts the forced bond deduction, all in
// one atomic unit. Either everything commits (incident, deduction,
// audit entry, shift flag) or nothing does: an incident with a
// deductible but no matching transaction can never exist.
func (s *DeductionService) CreateIncident(ctx context.Context, req CreateIncidentRequest) (*domain.Incident, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	if req.ShiftID != "" {
		if _, err := s.shiftRepo.GetByID(ctx, req.ShiftID); err != nil {
			return nil, err
		}
	}

	// Classification decides status and deductible together, before
	// any persistence happens.
	status, deductible := classifyIncident(req.Type, req.ThirdPartyInsurance)

	now := time.Now().UTC()
	incident := &domain.Incident{
		ID:                  uuid.New().String(),
		DriverID:            req.DriverID,
		ShiftID:             req.ShiftID,
		TripID:              req.TripID,
		AssetID:             req.AssetID,
		Type:                req.Type,
		Severity:            req.Severity,
		Status:              status,
		OccurredAt:          req.OccurredAt,
		Description:         req.Description,
		ThirdPartyName:      req.ThirdPartyName,
		ThirdPartyContact:   req.ThirdPartyContact,
		ThirdPartyPlate:     req.ThirdPartyPlate,
		ThirdPartyInsurance: req.ThirdPartyInsurance,
		DeductibleAmount:    deductible,
		SLADueAt:            s.sla.DueAt(req.Severity, req.OccurredAt),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.uow.Within(ctx, func(repos repository.Repos) error {
		number, err := repos.Incidents.NextIncidentNumber(ctx, now)
		if err != nil {
			return err
		}
		incident.IncidentNumber = number

		if err := repos.Incidents.Create(ctx, incident); err != nil {
			return err
		}

		floored := false
		if deductible.IsPositive() {
			floored, err = s.postIncidentDeduction(ctx, repos, incident, deductible, req.Actor)
			if err != nil {
				return err
			}
		}

		created := newActivity(incident.ID, domain.ActivityTypeCreated, req.Actor)
		created.Description = fmt.Sprintf("Incident %s created with status %s", incident.IncidentNumber, incident.Status)
		created.NewValue = string(incident.Status)
		if err := repos.Activities.Create(ctx, created); err != nil {
			return err
		}

		if floored {
			suspension := newActivity(incident.ID, domain.ActivityTypeSuspensionRecommended, req.Actor)
			suspension.Description = fmt.Sprintf("Bond exhausted by deduction of %s; suspension recommended for driver %s", deductible, driver.ID)
			if err := repos.Activities.Create(ctx, suspension); err != nil {
				return err
			}
		}

		if req.ShiftID != "" {
			if err := repos.Shifts.MarkHasIncident(ctx, req.ShiftID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if deductible.IsPositive() && s.cache != nil {
		_ = s.cache.InvalidateBondSummary(ctx, req.DriverID)
	}

	s.log.WithFields(logrus.Fields{
		"incident_id":     incident.ID,
		"incident_number": incident.IncidentNumber,
		"driver_id":       incident.DriverID,
		"status":          incident.Status,
		"deductible":      incident.DeductibleAmount.String(),
	}).Info("incident created")

	return incident, nil
}

// ProcessIncidentDeduction applies a fixed deduction for an incident
// after the fact, typically on behalf of an external monitoring
// integration. Types without a configured amount are a no-op (nil
// transaction). The ledger's uniqueness constraint makes the operation
// idempotent: a second call for the same incident fails with
// ErrDuplicateDeduction and leaves the balance untouched.
func (s *DeductionService) ProcessIncidentDeduction(ctx context.Context, driverID, incidentID string, incidentType domain.IncidentType, actor string) (*domain.Transaction, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if incidentID == "" {
		return nil, ErrInvalidIncidentID
	}

	amount, ok := deductionAmounts[incidentType]
	if !ok {
		return nil, nil
	}

	incident, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.DriverID != driverID {
		return nil, ErrIncidentDriverMismatch
	}

	// Advisory lock to shed concurrent duplicates early. The insert
	// against the uniqueness constraint below remains the authority.
	if s.lock != nil {
		acquired, err := s.lock.AcquireIncidentLock(ctx, incidentID, incidentLockTTL)
		if err == nil {
			if !acquired {
				return nil, ErrDuplicateDeduction
			}
			defer func() { _ = s.lock.ReleaseIncidentLock(ctx, incidentID) }()
		}
	}

	var created *domain.Transaction
	err = s.uow.Within(ctx, func(repos repository.Repos) error {
		target, err := repos.Incidents.GetByID(ctx, incidentID)
		if err != nil {
			return err
		}

		tx, floored, err := postForcedDeduction(ctx, repos, driverID, amount, incidentID,
			fmt.Sprintf("Security deduction for incident %s", target.IncidentNumber), actor)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateReference) {
				return ErrDuplicateDeduction
			}
			return err
		}

		oldDeductible := target.DeductibleAmount
		target.DeductibleAmount = target.DeductibleAmount.Add(amount)
		target.UpdatedAt = time.Now().UTC()
		if err := repos.Incidents.Update(ctx, target); err != nil {
			return err
		}

		activity := newActivity(incidentID, domain.ActivityTypeStatusChanged, actor)
		activity.Description = fmt.Sprintf("Deduction of %s recorded", amount)
		activity.OldValue = oldDeductible.String()
		activity.NewValue = target.DeductibleAmount.String()
		if err := repos.Activities.Create(ctx, activity); err != nil {
			return err
		}

		if floored {
			suspension := newActivity(incidentID, domain.ActivityTypeSuspensionRecommended, actor)
			suspension.Description = fmt.Sprintf("Bond exhausted by deduction of %s; suspension recommended for driver %s", amount, driverID)
			if err := repos.Activities.Create(ctx, suspension); err != nil {
				return err
			}
		}

		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateBondSummary(ctx, driverID)
	}

	s.log.WithFields(logrus.Fields{
		"incident_id": incidentID,
		"driver_id":   driverID,
		"amount":      amount.String(),
	}).Info("incident deduction processed")

	return created, nil
}

// postIncidentDeduction posts the creation-time forced deduction inside
// the caller's unit of work. Returns whether the balance was floored
// at zero.
func (s *DeductionService) postIncidentDeduction(ctx context.Context, repos repository.Repos, incident *domain.Incident, amount decimal.Decimal, actor string) (bool, error) {
	_, floored, err := postForcedDeduction(ctx, repos, incident.DriverID, amount, incident.ID,
		fmt.Sprintf("Accident deductible for incident %s", incident.IncidentNumber), actor)
	return floored, err
}

// postForcedDeduction locks the driver row, applies a forced deduction
// and writes both the transaction and the new balance. Runs inside the
// caller's unit of work so it commits or rolls back with everything
// else in the unit.
func postForcedDeduction(ctx context.Context, repos repository.Repos, driverID string, amount decimal.Decimal, incidentID, description, actor string) (*domain.Transaction, bool, error) {
	driver, err := repos.Drivers.GetForUpdate(ctx, driverID)
	if err != nil {
		return nil, false, err
	}

	newBalance, err := nextBalance(driver.BondBalance, domain.TransactionTypeDeduction, amount, domain.DeductionForced)
	if err != nil {
		return nil, false, err
	}

	tx := &domain.Transaction{
		ID:            uuid.New().String(),
		DriverID:      driverID,
		Type:          domain.TransactionTypeDeduction,
		Amount:        amount,
		BalanceAfter:  newBalance,
		ReferenceType: domain.ReferenceTypeIncident,
		ReferenceID:   incidentID,
		Description:   description,
		CreatedBy:     actor,
		CreatedAt:     time.Now().UTC(),
	}

	if err := repos.Ledger.Create(ctx, tx); err != nil {
		return nil, false, err
	}

	if err := repos.Drivers.UpdateBondBalance(ctx, driverID, newBalance); err != nil {
		return nil, false, err
	}

	return tx, newBalance.IsZero() && amount.GreaterThan(driver.BondBalance), nil
}

func (s *DeductionService) validateCreate(req *CreateIncidentRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !validIncidentTypes[req.Type] {
		return ErrInvalidIncidentType
	}
	if req.Description == "" {
		return ErrMissingDescription
	}
	if req.Severity == 0 {
		req.Severity = 3
	}
	if req.Severity < domain.SeverityHighest || req.Severity > domain.SeverityLowest {
		return ErrInvalidSeverity
	}
	if req.OccurredAt.IsZero() {
		req.OccurredAt = time.Now().UTC()
	}
	return nil
}
