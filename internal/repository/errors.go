package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateReference is returned when a ledger transaction with
	// the same (driver, reference type, reference id) already exists.
	// The storage layer's uniqueness constraint is the source of truth
	// for this condition.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)
