package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/redis"
	"fleetops/internal/repository"
)

// snapshotter is implemented by mocks participating in the mock unit
// of work so a failed unit can be rolled back for real.
type snapshotter interface {
	snapshot()
	restore()
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork is an in-memory implementation of
// repository.UnitOfWork. Units are serialized by a mutex, and every
// participating mock is snapshotted on entry and restored when fn
// fails, mirroring transactional rollback.
type MockUnitOfWork struct {
	mu    sync.Mutex
	repos repository.Repos
	parts []snapshotter

	// Error injection
	BeginError error
}

// NewMockUnitOfWork creates a unit of work over the given mocks.
func NewMockUnitOfWork(
	drivers *MockDriverRepository,
	ledger *MockLedgerRepository,
	incidents *MockIncidentRepository,
	activities *MockActivityRepository,
	shifts *MockShiftRepository,
) *MockUnitOfWork {
	return &MockUnitOfWork{
		repos: repository.Repos{
			Drivers:    drivers,
			Ledger:     ledger,
			Incidents:  incidents,
			Activities: activities,
			Shifts:     shifts,
		},
		parts: []snapshotter{drivers, ledger, incidents, activities, shifts},
	}
}

func (u *MockUnitOfWork) Within(ctx context.Context, fn func(repos repository.Repos) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.BeginError != nil {
		return u.BeginError
	}

	for _, p := range u.parts {
		p.snapshot()
	}

	if err := fn(u.repos); err != nil {
		for _, p := range u.parts {
			p.restore()
		}
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
	saved   map[string]*domain.Driver

	// Counters for verification
	UpdateBalanceCallCount int32

	// Error injection
	UpdateBalanceError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.Phone == phone {
			copy := *d
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

// GetForUpdate behaves like GetByID; serialization is provided by the
// mock unit of work's mutex.
func (m *MockDriverRepository) GetForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return m.GetByID(ctx, id)
}

func (m *MockDriverRepository) UpdateBondBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	atomic.AddInt32(&m.UpdateBalanceCallCount, 1)
	if m.UpdateBalanceError != nil {
		return m.UpdateBalanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.BondBalance = balance
	return nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

// GetDriver returns the driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) snapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = make(map[string]*domain.Driver, len(m.drivers))
	for id, d := range m.drivers {
		copy := *d
		m.saved[id] = &copy
	}
}

func (m *MockDriverRepository) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers = m.saved
}

// ──────────────────────────────────────────────
// MOCK LEDGER REPOSITORY
// ──────────────────────────────────────────────

// MockLedgerRepository is a mock implementation of LedgerRepository.
// It enforces the incident-reference uniqueness constraint the way the
// real storage layer does.
type MockLedgerRepository struct {
	mu    sync.RWMutex
	txs   []*domain.Transaction
	saved []*domain.Transaction

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockLedgerRepository creates a new mock ledger repository.
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ReferenceType == domain.ReferenceTypeIncident {
		for _, existing := range m.txs {
			if existing.DriverID == tx.DriverID &&
				existing.ReferenceType == domain.ReferenceTypeIncident &&
				existing.ReferenceID == tx.ReferenceID {
				return repository.ErrDuplicateReference
			}
		}
	}
	copy := *tx
	m.txs = append(m.txs, &copy)
	return nil
}

func (m *MockLedgerRepository) GetByReference(ctx context.Context, driverID string, refType domain.ReferenceType, refID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.txs {
		if tx.DriverID == driverID && tx.ReferenceType == refType && tx.ReferenceID == refID {
			copy := *tx
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockLedgerRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, tx := range m.txs {
		if tx.DriverID == driverID {
			copy := *tx
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockLedgerRepository) List(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.Transaction
	for _, tx := range m.txs {
		if filter.DriverID != "" && tx.DriverID != filter.DriverID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		copy := *tx
		matched = append(matched, &copy)
	}
	total := len(matched)
	// Newest first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// CountTransactions returns the number of stored transactions.
func (m *MockLedgerRepository) CountTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

func (m *MockLedgerRepository) snapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = make([]*domain.Transaction, len(m.txs))
	for i, tx := range m.txs {
		copy := *tx
		m.saved[i] = &copy
	}
}

func (m *MockLedgerRepository) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = m.saved
}

// ──────────────────────────────────────────────
// MOCK INCIDENT REPOSITORY
// ──────────────────────────────────────────────

// MockIncidentRepository is a mock implementation of IncidentRepository.
type MockIncidentRepository struct {
	mu            sync.RWMutex
	incidents     map[string]*domain.Incident
	counters      map[string]int
	savedInc      map[string]*domain.Incident
	savedCounters map[string]int

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockIncidentRepository creates a new mock incident repository.
func NewMockIncidentRepository() *MockIncidentRepository {
	return &MockIncidentRepository{
		incidents: make(map[string]*domain.Incident),
		counters:  make(map[string]int),
	}
}

// AddIncident adds an incident to the mock repository.
func (m *MockIncidentRepository) AddIncident(incident *domain.Incident) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents[incident.ID] = incident
}

func (m *MockIncidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents[incident.ID] = copyIncident(incident)
	return nil
}

func (m *MockIncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	incident, ok := m.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyIncident(incident), nil
}

func (m *MockIncidentRepository) Update(ctx context.Context, incident *domain.Incident) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[incident.ID]; !ok {
		return repository.ErrNotFound
	}
	m.incidents[incident.ID] = copyIncident(incident)
	return nil
}

func (m *MockIncidentRepository) List(ctx context.Context, filter repository.IncidentFilter, limit, offset int) ([]*domain.Incident, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.Incident
	for _, incident := range m.incidents {
		if filter.DriverID != "" && incident.DriverID != filter.DriverID {
			continue
		}
		if filter.Type != "" && incident.Type != filter.Type {
			continue
		}
		if filter.Status != "" && incident.Status != filter.Status {
			continue
		}
		if filter.Severity != 0 && incident.Severity != filter.Severity {
			continue
		}
		matched = append(matched, copyIncident(incident))
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MockIncidentRepository) NextIncidentNumber(ctx context.Context, day time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := day.UTC().Format("20060102")
	m.counters[key]++
	return fmt.Sprintf("INC-%s-%04d", key, m.counters[key]), nil
}

// GetIncident returns the incident for test assertions.
func (m *MockIncidentRepository) GetIncident(id string) *domain.Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.incidents[id]
}

// CountIncidents returns the number of stored incidents.
func (m *MockIncidentRepository) CountIncidents() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.incidents)
}

func (m *MockIncidentRepository) snapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedInc = make(map[string]*domain.Incident, len(m.incidents))
	for id, incident := range m.incidents {
		m.savedInc[id] = copyIncident(incident)
	}
	m.savedCounters = make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		m.savedCounters[k] = v
	}
}

func (m *MockIncidentRepository) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents = m.savedInc
	m.counters = m.savedCounters
}

func copyIncident(incident *domain.Incident) *domain.Incident {
	copy := *incident
	copy.PhotoURLs = append([]string(nil), incident.PhotoURLs...)
	return &copy
}

// ──────────────────────────────────────────────
// MOCK ACTIVITY REPOSITORY
// ──────────────────────────────────────────────

// MockActivityRepository is a mock implementation of IncidentActivityRepository.
type MockActivityRepository struct {
	mu         sync.RWMutex
	activities []*domain.IncidentActivity
	saved      []*domain.IncidentActivity

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockActivityRepository creates a new mock activity repository.
func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{}
}

func (m *MockActivityRepository) Create(ctx context.Context, activity *domain.IncidentActivity) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *activity
	m.activities = append(m.activities, &copy)
	return nil
}

func (m *MockActivityRepository) ListByIncident(ctx context.Context, incidentID string) ([]*domain.IncidentActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.IncidentActivity
	for _, a := range m.activities {
		if a.IncidentID == incidentID {
			copy := *a
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ActivitiesFor returns activities for test assertions.
func (m *MockActivityRepository) ActivitiesFor(incidentID string) []*domain.IncidentActivity {
	result, _ := m.ListByIncident(context.Background(), incidentID)
	return result
}

func (m *MockActivityRepository) snapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append([]*domain.IncidentActivity(nil), m.activities...)
}

func (m *MockActivityRepository) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = m.saved
}

// ──────────────────────────────────────────────
// MOCK SHIFT REPOSITORY
// ──────────────────────────────────────────────

// MockShiftRepository is a mock implementation of ShiftRepository.
type MockShiftRepository struct {
	mu     sync.RWMutex
	shifts map[string]*domain.Shift
	saved  map[string]*domain.Shift

	// Error injection
	MarkError error
}

// NewMockShiftRepository creates a new mock shift repository.
func NewMockShiftRepository() *MockShiftRepository {
	return &MockShiftRepository{shifts: make(map[string]*domain.Shift)}
}

// AddShift adds a shift to the mock repository.
func (m *MockShiftRepository) AddShift(shift *domain.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[shift.ID] = shift
}

func (m *MockShiftRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shift, ok := m.shifts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *shift
	return &copy, nil
}

func (m *MockShiftRepository) MarkHasIncident(ctx context.Context, id string) error {
	if m.MarkError != nil {
		return m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	shift, ok := m.shifts[id]
	if !ok {
		return repository.ErrNotFound
	}
	shift.HasIncident = true
	return nil
}

// GetShift returns the shift for test assertions.
func (m *MockShiftRepository) GetShift(id string) *domain.Shift {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shifts[id]
}

func (m *MockShiftRepository) snapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = make(map[string]*domain.Shift, len(m.shifts))
	for id, s := range m.shifts {
		copy := *s
		m.saved[id] = &copy
	}
}

func (m *MockShiftRepository) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts = m.saved
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copy := *u
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockBondCache is an in-memory implementation of BondCacheInterface.
type MockBondCache struct {
	mu        sync.Mutex
	summaries map[string]*redis.CachedBondSummary

	InvalidateCallCount int32
}

// NewMockBondCache creates a new mock bond cache.
func NewMockBondCache() *MockBondCache {
	return &MockBondCache{summaries: make(map[string]*redis.CachedBondSummary)}
}

func (m *MockBondCache) GetBondSummary(ctx context.Context, driverID string) (*redis.CachedBondSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries[driverID], nil
}

func (m *MockBondCache) SetBondSummary(ctx context.Context, driverID string, summary *redis.CachedBondSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[driverID] = summary
	return nil
}

func (m *MockBondCache) InvalidateBondSummary(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, driverID)
	return nil
}

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireIncidentLock(ctx context.Context, incidentID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[incidentID] {
		return false, nil
	}
	m.locks[incidentID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseIncidentLock(ctx context.Context, incidentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, incidentID)
	return nil
}

// Ensure mocks satisfy the interfaces they stand in for.
var (
	_ repository.DriverRepository           = (*MockDriverRepository)(nil)
	_ repository.LedgerRepository           = (*MockLedgerRepository)(nil)
	_ repository.IncidentRepository         = (*MockIncidentRepository)(nil)
	_ repository.IncidentActivityRepository = (*MockActivityRepository)(nil)
	_ repository.ShiftRepository            = (*MockShiftRepository)(nil)
	_ repository.UserRepository             = (*MockUserRepository)(nil)
	_ repository.UnitOfWork                 = (*MockUnitOfWork)(nil)
	_ redis.BondCacheInterface              = (*MockBondCache)(nil)
	_ redis.LockStoreInterface              = (*MockLockStore)(nil)
)
