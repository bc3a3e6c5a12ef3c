package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusActive    DriverStatus = "ACTIVE"
	DriverStatusInactive  DriverStatus = "INACTIVE"
	DriverStatusSuspended DriverStatus = "SUSPENDED"
)

// Driver represents a driver in the system.
//
// BondBalance is denormalized for O(1) reads: it always equals the
// BalanceAfter of the driver's most recent ledger transaction and is
// only ever written as part of posting a new transaction.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	Status       DriverStatus
	BondBalance  decimal.Decimal
	BondRequired decimal.Decimal
	CreatedAt    time.Time
}
