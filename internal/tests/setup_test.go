package tests

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fleetops/internal/domain"
	"fleetops/internal/service"
)

// testEnv wires the three services over in-memory mocks. Each test
// gets a fresh env so tests stay independent under t.Parallel.
type testEnv struct {
	drivers    *MockDriverRepository
	ledger     *MockLedgerRepository
	incidents  *MockIncidentRepository
	activities *MockActivityRepository
	shifts     *MockShiftRepository
	users      *MockUserRepository
	uow        *MockUnitOfWork
	cache      *MockBondCache
	locks      *MockLockStore

	bond      *service.BondService
	incident  *service.IncidentService
	deduction *service.DeductionService
}

func newTestEnv() *testEnv {
	drivers := NewMockDriverRepository()
	ledger := NewMockLedgerRepository()
	incidents := NewMockIncidentRepository()
	activities := NewMockActivityRepository()
	shifts := NewMockShiftRepository()
	users := NewMockUserRepository()
	uow := NewMockUnitOfWork(drivers, ledger, incidents, activities, shifts)
	cache := NewMockBondCache()
	locks := NewMockLockStore()

	log := logrus.New()
	log.SetOutput(io.Discard)

	sla := service.NewSLAClock()

	return &testEnv{
		drivers:    drivers,
		ledger:     ledger,
		incidents:  incidents,
		activities: activities,
		shifts:     shifts,
		users:      users,
		uow:        uow,
		cache:      cache,
		locks:      locks,
		bond:       service.NewBondService(uow, drivers, ledger, cache, log, 0),
		incident:   service.NewIncidentService(uow, incidents, activities, users, sla, log),
		deduction:  service.NewDeductionService(uow, drivers, shifts, incidents, locks, cache, sla, log),
	}
}

// addDriver seeds a driver with the given bond balance and requirement.
func (e *testEnv) addDriver(id string, balance, required int64) *domain.Driver {
	driver := &domain.Driver{
		ID:           id,
		Name:         "Driver " + id,
		Phone:        "+9715550" + id,
		Status:       domain.DriverStatusActive,
		BondBalance:  decimal.NewFromInt(balance),
		BondRequired: decimal.NewFromInt(required),
	}
	e.drivers.AddDriver(driver)
	return driver
}
