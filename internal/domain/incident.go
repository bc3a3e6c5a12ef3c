package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncidentType represents the category of an incident.
type IncidentType string

const (
	IncidentTypeAccident          IncidentType = "ACCIDENT"
	IncidentTypeBreakdown         IncidentType = "BREAKDOWN"
	IncidentTypeSOS               IncidentType = "SOS"
	IncidentTypeIntegrityAlert    IncidentType = "INTEGRITY_ALERT"
	IncidentTypeCustomerComplaint IncidentType = "CUSTOMER_COMPLAINT"
	IncidentTypeTrafficViolation  IncidentType = "TRAFFIC_VIOLATION"
)

// IncidentStatus represents the state of an incident in its lifecycle.
//
// Transitions: Open may move to Investigating, Escalated or Resolved;
// Investigating and AuditFail may move to Escalated or Resolved;
// Resolved is terminal.
type IncidentStatus string

const (
	IncidentStatusOpen          IncidentStatus = "OPEN"
	IncidentStatusInvestigating IncidentStatus = "INVESTIGATING"
	IncidentStatusEscalated     IncidentStatus = "ESCALATED"
	IncidentStatusAuditFail     IncidentStatus = "AUDIT_FAIL"
	IncidentStatusResolved      IncidentStatus = "RESOLVED"
)

// Severity bounds. 1 is the highest priority, 4 the lowest.
const (
	SeverityHighest = 1
	SeverityLowest  = 4
)

// Incident represents a reported incident involving a driver.
type Incident struct {
	ID                  string
	IncidentNumber      string
	DriverID            string
	ShiftID             string
	TripID              string
	AssetID             string
	Type                IncidentType
	Severity            int
	Status              IncidentStatus
	OccurredAt          time.Time
	Description         string
	ThirdPartyName      string
	ThirdPartyContact   string
	ThirdPartyPlate     string
	ThirdPartyInsurance string
	// DeductibleAmount > 0 implies exactly one ledger transaction
	// references this incident.
	DeductibleAmount decimal.Decimal
	PhotoURLs        []string
	FootageURL       string
	SLADueAt         time.Time
	// SLABreached is computed once at resolution and never recomputed.
	SLABreached     bool
	AssignedToID    string
	ResolvedByID    string
	ResolutionNotes string
	ResolvedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Resolved reports whether the incident is in its terminal state.
func (i *Incident) Resolved() bool {
	return i.Status == IncidentStatusResolved
}

// ActivityType represents the kind of audit-trail entry on an incident.
type ActivityType string

const (
	ActivityTypeCreated               ActivityType = "CREATED"
	ActivityTypeStatusChanged         ActivityType = "STATUS_CHANGED"
	ActivityTypeAssigned              ActivityType = "ASSIGNED"
	ActivityTypeEscalated             ActivityType = "ESCALATED"
	ActivityTypeEvidenceAdded         ActivityType = "EVIDENCE_ADDED"
	ActivityTypeResolved              ActivityType = "RESOLVED"
	ActivityTypeSuspensionRecommended ActivityType = "SUSPENSION_RECOMMENDED"
)

// IncidentActivity is an append-only audit-trail entry. Every
// state-changing operation on an incident writes at least one activity
// in the same atomic unit of work.
type IncidentActivity struct {
	ID           string
	IncidentID   string
	ActivityType ActivityType
	Description  string
	OldValue     string
	NewValue     string
	CreatedByID  string
	CreatedAt    time.Time
}
