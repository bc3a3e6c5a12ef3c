package service

import (
	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
)

// accidentDeductible is the fixed amount charged when an accident is
// filed without third-party insurance information.
var accidentDeductible = decimal.NewFromInt(1000)

// deductionAmounts maps incident types to the fixed deduction applied
// by the post-creation monitoring path. Types without an entry carry no
// deduction.
var deductionAmounts = map[domain.IncidentType]decimal.Decimal{
	domain.IncidentTypeAccident:          decimal.NewFromInt(1000),
	domain.IncidentTypeTrafficViolation:  decimal.NewFromInt(500),
	domain.IncidentTypeIntegrityAlert:    decimal.NewFromInt(750),
	domain.IncidentTypeCustomerComplaint: decimal.NewFromInt(250),
}

// classifyIncident runs exactly once, at creation time. An accident
// reported without a third-party insurance reference is created already
// non-compliant: AuditFail status plus the fixed accident deductible.
// Every other combination starts Open with no deductible.
//
// Status and deductible are decided together so they can never disagree
// after a partial failure.
func classifyIncident(incidentType domain.IncidentType, thirdPartyInsurance string) (domain.IncidentStatus, decimal.Decimal) {
	if incidentType == domain.IncidentTypeAccident && thirdPartyInsurance == "" {
		return domain.IncidentStatusAuditFail, accidentDeductible
	}
	return domain.IncidentStatusOpen, decimal.Zero
}

// validIncidentTypes is the closed set of known categories.
var validIncidentTypes = map[domain.IncidentType]bool{
	domain.IncidentTypeAccident:          true,
	domain.IncidentTypeBreakdown:         true,
	domain.IncidentTypeSOS:               true,
	domain.IncidentTypeIntegrityAlert:    true,
	domain.IncidentTypeCustomerComplaint: true,
	domain.IncidentTypeTrafficViolation:  true,
}
