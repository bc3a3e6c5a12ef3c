package domain

import "time"

// ShiftStatus represents the current status of a shift.
type ShiftStatus string

const (
	ShiftStatusActive ShiftStatus = "ACTIVE"
	ShiftStatusEnded  ShiftStatus = "ENDED"
)

// Shift represents a driver's working shift. The incident workflow only
// reads it for existence checks and flags it when an incident is filed
// during the shift.
type Shift struct {
	ID          string
	DriverID    string
	Status      ShiftStatus
	HasIncident bool
	StartedAt   time.Time
	EndedAt     time.Time
}
