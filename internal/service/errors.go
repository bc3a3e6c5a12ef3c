package service

import "errors"

var (
	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidIncidentID is returned when incident ID is empty.
	ErrInvalidIncidentID = errors.New("invalid incident id")

	// ErrInvalidIncidentType is returned when the incident type is not
	// one of the known categories.
	ErrInvalidIncidentType = errors.New("invalid incident type")

	// ErrInvalidSeverity is returned when severity is outside the 1-4 range.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidAmount is returned when a monetary amount is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrMissingDescription is returned when an incident is filed
	// without a description.
	ErrMissingDescription = errors.New("description is required")

	// ErrMissingResolutionNotes is returned when an incident is
	// resolved without notes.
	ErrMissingResolutionNotes = errors.New("resolution notes are required")

	// ErrInsufficientBalance is returned when a discretionary deduction
	// would take the bond balance below zero. Forced deductions floor
	// at zero instead.
	ErrInsufficientBalance = errors.New("insufficient bond balance")

	// ErrIncidentResolved is returned when mutating an incident that is
	// already in its terminal state.
	ErrIncidentResolved = errors.New("incident already resolved")

	// ErrSeverityAtMaximum is returned when escalating an incident that
	// is already at maximum priority.
	ErrSeverityAtMaximum = errors.New("incident already at maximum priority")

	// ErrDuplicateDeduction is returned when a deduction already exists
	// for the same incident reference. Callers must not retry blindly:
	// a duplicate usually indicates a double submission upstream.
	ErrDuplicateDeduction = errors.New("deduction already recorded for incident")

	// ErrIncidentDriverMismatch is returned when the incident does not
	// belong to the given driver.
	ErrIncidentDriverMismatch = errors.New("incident does not belong to driver")
)
