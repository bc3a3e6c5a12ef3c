package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/service"
)

// ──────────────────────────────────────────────
// 12. ATOMIC INCIDENT + DEDUCTION
// ──────────────────────────────────────────────

func TestDeductionCoordinator_ActivityFailure_RollsBackEverything(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)

	injected := errors.New("activity store unavailable")
	env.activities.CreateError = injected

	_, err := env.deduction.CreateIncident(context.Background(), service.CreateIncidentRequest{
		DriverID:    "driver-1",
		Type:        domain.IncidentTypeAccident,
		Description: "collision, no insurance details",
		Actor:       "ops-1",
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	// Nothing from the unit survived: no incident, no transaction,
	// balance untouched.
	if env.incidents.CountIncidents() != 0 {
		t.Errorf("expected no incidents, got %d", env.incidents.CountIncidents())
	}
	if env.ledger.CountTransactions() != 0 {
		t.Errorf("expected no transactions, got %d", env.ledger.CountTransactions())
	}
	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected balance 2000, got %s", driver.BondBalance)
	}
}

func TestDeductionCoordinator_RolledBackNumber_IsReissued(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	ctx := context.Background()

	env.activities.CreateError = errors.New("boom")
	if _, err := env.deduction.CreateIncident(ctx, service.CreateIncidentRequest{
		DriverID:    "driver-1",
		Type:        domain.IncidentTypeBreakdown,
		Description: "stalled engine",
	}); err == nil {
		t.Fatal("expected error")
	}
	env.activities.CreateError = nil

	incident, err := env.deduction.CreateIncident(ctx, service.CreateIncidentRequest{
		DriverID:    "driver-1",
		Type:        domain.IncidentTypeBreakdown,
		Description: "stalled engine",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The counter rolled back with the unit, so the number is reused
	// rather than leaving a gap.
	if got := incident.IncidentNumber[len(incident.IncidentNumber)-4:]; got != "0001" {
		t.Errorf("expected sequence 0001, got %s", got)
	}
}

func TestDeductionCoordinator_ShiftFlagged(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.shifts.AddShift(&domain.Shift{
		ID:       "shift-1",
		DriverID: "driver-1",
		Status:   domain.ShiftStatusActive,
	})

	_, err := env.deduction.CreateIncident(context.Background(), service.CreateIncidentRequest{
		DriverID:    "driver-1",
		ShiftID:     "shift-1",
		Type:        domain.IncidentTypeSOS,
		Description: "driver pressed panic button",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !env.shifts.GetShift("shift-1").HasIncident {
		t.Error("expected shift to be flagged")
	}
}

func TestDeductionCoordinator_UnknownShift_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)

	_, err := env.deduction.CreateIncident(context.Background(), service.CreateIncidentRequest{
		DriverID:    "driver-1",
		ShiftID:     "no-such-shift",
		Type:        domain.IncidentTypeSOS,
		Description: "panic button",
	})
	if err == nil {
		t.Fatal("expected error for unknown shift")
	}
	if env.incidents.CountIncidents() != 0 {
		t.Errorf("expected no incidents, got %d", env.incidents.CountIncidents())
	}
}

func TestDeductionCoordinator_BondExhausted_SuspensionRecommended(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 400, 5000)

	incident, err := env.deduction.CreateIncident(context.Background(), service.CreateIncidentRequest{
		DriverID:    "driver-1",
		Type:        domain.IncidentTypeAccident,
		Description: "major collision, no insurance details",
		Actor:       "ops-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.IsZero() {
		t.Errorf("expected balance floored at 0, got %s", driver.BondBalance)
	}

	var found bool
	for _, activity := range env.activities.ActivitiesFor(incident.ID) {
		if activity.ActivityType == domain.ActivityTypeSuspensionRecommended {
			found = true
		}
	}
	if !found {
		t.Error("expected suspension recommendation activity")
	}
}

// ──────────────────────────────────────────────
// 13. IDEMPOTENT POST-CREATION DEDUCTIONS
// ──────────────────────────────────────────────

func TestProcessDeduction_AppliesConfiguredAmount(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:             "incident-1",
		IncidentNumber: "INC-20260829-0001",
		DriverID:       "driver-1",
		Type:           domain.IncidentTypeTrafficViolation,
		Status:         domain.IncidentStatusOpen,
	})

	tx, err := env.deduction.ProcessIncidentDeduction(context.Background(),
		"driver-1", "incident-1", domain.IncidentTypeTrafficViolation, "monitoring")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tx.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected amount 500, got %s", tx.Amount)
	}
	if !tx.BalanceAfter.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected balance after 1500, got %s", tx.BalanceAfter)
	}
	if tx.ReferenceType != domain.ReferenceTypeIncident || tx.ReferenceID != "incident-1" {
		t.Errorf("expected incident reference, got %s/%s", tx.ReferenceType, tx.ReferenceID)
	}

	// The incident's deductible tracks the charge.
	stored := env.incidents.GetIncident("incident-1")
	if !stored.DeductibleAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected deductible 500, got %s", stored.DeductibleAmount)
	}
}

func TestProcessDeduction_SecondCall_DuplicateRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:             "incident-1",
		IncidentNumber: "INC-20260829-0001",
		DriverID:       "driver-1",
		Type:           domain.IncidentTypeIntegrityAlert,
		Status:         domain.IncidentStatusOpen,
	})
	ctx := context.Background()

	if _, err := env.deduction.ProcessIncidentDeduction(ctx,
		"driver-1", "incident-1", domain.IncidentTypeIntegrityAlert, "monitoring"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := env.deduction.ProcessIncidentDeduction(ctx,
		"driver-1", "incident-1", domain.IncidentTypeIntegrityAlert, "monitoring")
	if !errors.Is(err, service.ErrDuplicateDeduction) {
		t.Fatalf("expected ErrDuplicateDeduction, got %v", err)
	}

	// Charged exactly once.
	if env.ledger.CountTransactions() != 1 {
		t.Errorf("expected 1 transaction, got %d", env.ledger.CountTransactions())
	}
	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("expected balance 1250, got %s", driver.BondBalance)
	}
}

func TestProcessDeduction_UnconfiguredType_NoOp(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:       "incident-1",
		DriverID: "driver-1",
		Type:     domain.IncidentTypeBreakdown,
		Status:   domain.IncidentStatusOpen,
	})

	tx, err := env.deduction.ProcessIncidentDeduction(context.Background(),
		"driver-1", "incident-1", domain.IncidentTypeBreakdown, "monitoring")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx != nil {
		t.Errorf("expected no transaction for breakdown, got %+v", tx)
	}
	if env.ledger.CountTransactions() != 0 {
		t.Errorf("expected no transactions, got %d", env.ledger.CountTransactions())
	}
}

func TestProcessDeduction_DriverMismatch_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.addDriver("driver-2", 2000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:       "incident-1",
		DriverID: "driver-1",
		Type:     domain.IncidentTypeAccident,
		Status:   domain.IncidentStatusOpen,
	})

	_, err := env.deduction.ProcessIncidentDeduction(context.Background(),
		"driver-2", "incident-1", domain.IncidentTypeAccident, "monitoring")
	if !errors.Is(err, service.ErrIncidentDriverMismatch) {
		t.Fatalf("expected ErrIncidentDriverMismatch, got %v", err)
	}
}

func TestProcessDeduction_LockHeld_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 2000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:       "incident-1",
		DriverID: "driver-1",
		Type:     domain.IncidentTypeAccident,
		Status:   domain.IncidentStatusOpen,
	})
	ctx := context.Background()

	// Another worker holds the advisory lock.
	if acquired, _ := env.locks.AcquireIncidentLock(ctx, "incident-1", 0); !acquired {
		t.Fatal("failed to pre-acquire lock")
	}

	_, err := env.deduction.ProcessIncidentDeduction(ctx,
		"driver-1", "incident-1", domain.IncidentTypeAccident, "monitoring")
	if !errors.Is(err, service.ErrDuplicateDeduction) {
		t.Fatalf("expected ErrDuplicateDeduction, got %v", err)
	}
	if env.ledger.CountTransactions() != 0 {
		t.Errorf("expected no transactions, got %d", env.ledger.CountTransactions())
	}
}

func TestProcessDeduction_ConcurrentCalls_ChargeOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 5000, 5000)
	env.incidents.AddIncident(&domain.Incident{
		ID:             "incident-1",
		IncidentNumber: "INC-20260829-0001",
		DriverID:       "driver-1",
		Type:           domain.IncidentTypeCustomerComplaint,
		Status:         domain.IncidentStatusOpen,
	})
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			tx, err := env.deduction.ProcessIncidentDeduction(ctx,
				"driver-1", "incident-1", domain.IncidentTypeCustomerComplaint, "monitoring")
			if err == nil && tx != nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, service.ErrDuplicateDeduction) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 successful charge, got %d", successes)
	}
	if env.ledger.CountTransactions() != 1 {
		t.Errorf("expected 1 transaction, got %d", env.ledger.CountTransactions())
	}
	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(4750)) {
		t.Errorf("expected balance 4750, got %s", driver.BondBalance)
	}
}

// ──────────────────────────────────────────────
// 14. END-TO-END SCENARIO
// ──────────────────────────────────────────────

func TestDeductionCoordinator_AccidentScenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 0, 5000)
	ctx := context.Background()

	// The driver funded part of the bond before the incident.
	if _, err := env.bond.PostDeposit(ctx, service.DepositRequest{
		DriverID: "driver-1",
		Amount:   decimal.NewFromInt(1200),
		Notes:    "initial bond funding",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incident, err := env.deduction.CreateIncident(ctx, service.CreateIncidentRequest{
		DriverID:       "driver-1",
		Type:           domain.IncidentTypeAccident,
		Severity:       2,
		Description:    "collision, third party fled without exchanging details",
		ThirdPartyName: "Unknown",
		Actor:          "ops-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No insurance reference: created already non-compliant with the
	// fixed deductible charged.
	if incident.Status != domain.IncidentStatusAuditFail {
		t.Errorf("expected status %s, got %s", domain.IncidentStatusAuditFail, incident.Status)
	}
	if !incident.DeductibleAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected deductible 1000, got %s", incident.DeductibleAmount)
	}

	tx, err := env.ledger.GetByReference(ctx, "driver-1", domain.ReferenceTypeIncident, incident.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx == nil {
		t.Fatal("expected a ledger transaction referencing the incident")
	}
	if !tx.BalanceAfter.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected balance after 200, got %s", tx.BalanceAfter)
	}

	sufficiency, err := env.bond.CheckSufficiency(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sufficiency.CanStartShift {
		t.Error("expected shift start to be blocked")
	}
	if !sufficiency.Shortfall.Equal(decimal.NewFromInt(4800)) {
		t.Errorf("expected shortfall 4800, got %s", sufficiency.Shortfall)
	}

	alert, err := env.bond.CheckBurnAlert(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !alert.IsActive {
		t.Error("expected burn alert to be active")
	}
	if alert.Percent != 4 {
		t.Errorf("expected 4 percent, got %d", alert.Percent)
	}

	consistent, replayed, stored, err := env.bond.AuditLedger(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !consistent {
		t.Errorf("expected consistent ledger, replayed %s vs stored %s", replayed, stored)
	}
}
