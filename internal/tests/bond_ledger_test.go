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
// 1. BOND LEDGER POSTING
// ──────────────────────────────────────────────

func TestBondLedger_Deposit_IncreasesBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 1000, 5000)

	tx, err := env.bond.PostDeposit(context.Background(), service.DepositRequest{
		DriverID:      "driver-1",
		Amount:        decimal.NewFromInt(500),
		ReferenceType: domain.ReferenceTypeManual,
		Notes:         "top-up",
		Actor:         "ops-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tx.BalanceAfter.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected balance after 1500, got %s", tx.BalanceAfter)
	}
	if tx.Type != domain.TransactionTypeDeposit {
		t.Errorf("expected type %s, got %s", domain.TransactionTypeDeposit, tx.Type)
	}

	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected stored balance 1500, got %s", driver.BondBalance)
	}
	if env.ledger.CountTransactions() != 1 {
		t.Errorf("expected 1 transaction, got %d", env.ledger.CountTransactions())
	}
}

func TestBondLedger_Deposit_NonPositiveAmount_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 1000, 5000)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := env.bond.PostDeposit(context.Background(), service.DepositRequest{
			DriverID: "driver-1",
			Amount:   amount,
		})
		if !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	if env.ledger.CountTransactions() != 0 {
		t.Errorf("expected no transactions, got %d", env.ledger.CountTransactions())
	}
}

func TestBondLedger_DiscretionaryDeduction_InsufficientBalance_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 300, 5000)

	_, err := env.bond.PostDeduction(context.Background(), service.DeductionRequest{
		DriverID: "driver-1",
		Amount:   decimal.NewFromInt(500),
		Mode:     domain.DeductionDiscretionary,
	})
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// The whole unit rolled back: no transaction, balance untouched.
	if env.ledger.CountTransactions() != 0 {
		t.Errorf("expected no transactions, got %d", env.ledger.CountTransactions())
	}
	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected balance 300, got %s", driver.BondBalance)
	}
}

func TestBondLedger_ForcedDeduction_FloorsAtZero(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 300, 5000)

	tx, err := env.bond.PostDeduction(context.Background(), service.DeductionRequest{
		DriverID: "driver-1",
		Amount:   decimal.NewFromInt(500),
		Mode:     domain.DeductionForced,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The full charged magnitude is recorded; only the balance floors.
	if !tx.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected recorded amount 500, got %s", tx.Amount)
	}
	if !tx.BalanceAfter.IsZero() {
		t.Errorf("expected balance after 0, got %s", tx.BalanceAfter)
	}

	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.IsZero() {
		t.Errorf("expected stored balance 0, got %s", driver.BondBalance)
	}
}

func TestBondLedger_DeductionDefaultsToDiscretionary(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 100, 5000)

	_, err := env.bond.PostDeduction(context.Background(), service.DeductionRequest{
		DriverID: "driver-1",
		Amount:   decimal.NewFromInt(200),
	})
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance for unset mode, got %v", err)
	}
}

func TestBondLedger_PostInvalidatesCachedSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 1000, 5000)
	ctx := context.Background()

	// Warm the cache.
	if _, err := env.bond.GetBondBalance(ctx, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.bond.PostDeposit(ctx, service.DepositRequest{
		DriverID: "driver-1",
		Amount:   decimal.NewFromInt(250),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := env.bond.GetBondBalance(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.Balance.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("expected fresh balance 1250 after invalidation, got %s", summary.Balance)
	}
}

// ──────────────────────────────────────────────
// 2. LEDGER REPLAY CONSISTENCY
// ──────────────────────────────────────────────

func TestBondLedger_ReplayMatchesStoredBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 0, 5000)
	ctx := context.Background()

	post := func(txType domain.TransactionType, amount int64, mode domain.DeductionMode) {
		t.Helper()
		var err error
		if txType == domain.TransactionTypeDeposit {
			_, err = env.bond.PostDeposit(ctx, service.DepositRequest{
				DriverID: "driver-1",
				Amount:   decimal.NewFromInt(amount),
			})
		} else {
			_, err = env.bond.PostDeduction(ctx, service.DeductionRequest{
				DriverID: "driver-1",
				Amount:   decimal.NewFromInt(amount),
				Mode:     mode,
			})
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	post(domain.TransactionTypeDeposit, 2000, "")
	post(domain.TransactionTypeDeduction, 500, domain.DeductionDiscretionary)
	post(domain.TransactionTypeDeduction, 3000, domain.DeductionForced) // floors at zero
	post(domain.TransactionTypeDeposit, 750, "")

	consistent, replayed, stored, err := env.bond.AuditLedger(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !consistent {
		t.Errorf("expected consistent ledger, replayed %s vs stored %s", replayed, stored)
	}
	if !stored.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected stored balance 750, got %s", stored)
	}
}

func TestBondLedger_ReplayBalance_ClampsAtZero(t *testing.T) {
	t.Parallel()

	txs := []*domain.Transaction{
		{Type: domain.TransactionTypeDeposit, Amount: decimal.NewFromInt(100)},
		{Type: domain.TransactionTypeDeduction, Amount: decimal.NewFromInt(400)},
		{Type: domain.TransactionTypeDeposit, Amount: decimal.NewFromInt(50)},
	}

	replayed := domain.ReplayBalance(txs)
	if !replayed.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected replayed balance 50, got %s", replayed)
	}
}

// ──────────────────────────────────────────────
// 3. CONCURRENT POSTING
// ──────────────────────────────────────────────

func TestBondLedger_ConcurrentDeposits_AllRecorded(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 0, 5000)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := env.bond.PostDeposit(ctx, service.DepositRequest{
				DriverID: "driver-1",
				Amount:   decimal.NewFromInt(10),
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if env.ledger.CountTransactions() != workers {
		t.Errorf("expected %d transactions, got %d", workers, env.ledger.CountTransactions())
	}
	driver := env.drivers.GetDriver("driver-1")
	if !driver.BondBalance.Equal(decimal.NewFromInt(workers * 10)) {
		t.Errorf("expected balance %d, got %s", workers*10, driver.BondBalance)
	}
}

// ──────────────────────────────────────────────
// 4. BALANCE GUARDS
// ──────────────────────────────────────────────

func TestBondGuard_Sufficiency_BelowRequirement(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 1200, 5000)

	sufficiency, err := env.bond.CheckSufficiency(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sufficiency.CanStartShift {
		t.Error("expected shift start to be blocked")
	}
	if !sufficiency.Shortfall.Equal(decimal.NewFromInt(3800)) {
		t.Errorf("expected shortfall 3800, got %s", sufficiency.Shortfall)
	}
}

func TestBondGuard_Sufficiency_MeetsRequirement(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-1", 5000, 5000)

	sufficiency, err := env.bond.CheckSufficiency(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sufficiency.CanStartShift {
		t.Error("expected shift start to be allowed")
	}
	if !sufficiency.Shortfall.IsZero() {
		t.Errorf("expected zero shortfall, got %s", sufficiency.Shortfall)
	}
}

func TestBondGuard_ZeroRequirement_CountsAsFullyFunded(t *testing.T) {
	t.Parallel()

	driver := &domain.Driver{
		BondBalance:  decimal.Zero,
		BondRequired: decimal.Zero,
	}

	if percent := service.BondPercent(driver); percent != 100 {
		t.Errorf("expected 100 percent for zero requirement, got %d", percent)
	}
	if sufficiency := service.Sufficiency(driver); !sufficiency.CanStartShift {
		t.Error("expected shift start to be allowed with zero requirement")
	}
}

func TestBondGuard_BurnAlert_ActivatesBelowThreshold(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.addDriver("driver-low", 900, 5000)  // 18%
	env.addDriver("driver-ok", 1500, 5000)  // 30%
	ctx := context.Background()

	alert, err := env.bond.CheckBurnAlert(ctx, "driver-low")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !alert.IsActive {
		t.Error("expected burn alert to be active at 18 percent")
	}
	if alert.Percent != 18 {
		t.Errorf("expected 18 percent, got %d", alert.Percent)
	}

	alert, err = env.bond.CheckBurnAlert(ctx, "driver-ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert.IsActive {
		t.Error("expected no burn alert at 30 percent")
	}
}

func TestBondLedger_EmptyDriverID_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.bond.GetBondBalance(ctx, ""); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("GetBondBalance: expected ErrInvalidDriverID, got %v", err)
	}
	if _, err := env.bond.PostDeposit(ctx, service.DepositRequest{Amount: decimal.NewFromInt(10)}); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("PostDeposit: expected ErrInvalidDriverID, got %v", err)
	}
}
