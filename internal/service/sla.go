package service

import "time"

// SLAClock derives resolution deadlines from incident severity. Kept
// separate from the state machine because the hours table is policy
// that changes independently of the transition rules.
type SLAClock struct{}

// NewSLAClock creates a new SLAClock.
func NewSLAClock() *SLAClock {
	return &SLAClock{}
}

// slaHours maps severity to the resolution window in hours.
var slaHours = map[int]int{
	1: 1,
	2: 4,
	3: 24,
	4: 72,
}

// defaultSLAHours is used when severity is unknown or missing.
const defaultSLAHours = 24

// DueAt computes the resolution deadline for an incident. The deadline
// is stored once at creation and never recomputed.
func (c *SLAClock) DueAt(severity int, occurredAt time.Time) time.Time {
	hours, ok := slaHours[severity]
	if !ok {
		hours = defaultSLAHours
	}
	return occurredAt.Add(time.Duration(hours) * time.Hour)
}

// IsBreached reports whether the deadline has passed. A zero deadline
// means no SLA was set and is never breached.
func (c *SLAClock) IsBreached(dueAt, now time.Time) bool {
	if dueAt.IsZero() {
		return false
	}
	return now.After(dueAt)
}
