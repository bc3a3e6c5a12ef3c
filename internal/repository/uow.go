package repository

import "context"

// Repos bundles the repositories participating in one atomic unit of
// work. All repositories in a bundle see the same transaction.
type Repos struct {
	Drivers    DriverRepository
	Ledger     LedgerRepository
	Incidents  IncidentRepository
	Activities IncidentActivityRepository
	Shifts     ShiftRepository
}

// UnitOfWork runs a function inside a single atomic transaction. If fn
// returns an error the whole unit rolls back and the error is returned
// unmodified; otherwise the unit commits. Partial state never survives.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(repos Repos) error) error
}
