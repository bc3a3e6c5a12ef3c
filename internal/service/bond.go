package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fleetops/internal/domain"
	"fleetops/internal/redis"
	"fleetops/internal/repository"
)

// BondService owns the security bond ledger: posting movements,
// reading balances, and the derived sufficiency checks. All balance
// writers go through here; nothing else touches the driver's
// BondBalance field.
type BondService struct {
	uow           repository.UnitOfWork
	driverRepo    repository.DriverRepository
	ledgerRepo    repository.LedgerRepository
	cache         redis.BondCacheInterface
	log           *logrus.Logger
	burnThreshold int
}

// NewBondService creates a new BondService. cache may be nil, in which
// case reads always hit the repository.
func NewBondService(
	uow repository.UnitOfWork,
	driverRepo repository.DriverRepository,
	ledgerRepo repository.LedgerRepository,
	cache redis.BondCacheInterface,
	log *logrus.Logger,
	burnThreshold int,
) *BondService {
	if log == nil {
		log = logrus.New()
	}
	if burnThreshold <= 0 {
		burnThreshold = DefaultBurnAlertThreshold
	}
	return &BondService{
		uow:           uow,
		driverRepo:    driverRepo,
		ledgerRepo:    ledgerRepo,
		cache:         cache,
		log:           log,
		burnThreshold: burnThreshold,
	}
}

// BondBalance is a driver's bond snapshot.
type BondBalance struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
	Percent  int
}

// GetBondBalance returns the driver's current bond snapshot.
func (s *BondService) GetBondBalance(ctx context.Context, driverID string) (*BondBalance, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if s.cache != nil {
		cached, err := s.cache.GetBondSummary(ctx, driverID)
		if err == nil && cached != nil {
			balance, berr := decimal.NewFromString(cached.Balance)
			required, rerr := decimal.NewFromString(cached.Required)
			if berr == nil && rerr == nil {
				return &BondBalance{Balance: balance, Required: required, Percent: cached.Percent}, nil
			}
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	summary := &BondBalance{
		Balance:  driver.BondBalance,
		Required: driver.BondRequired,
		Percent:  BondPercent(driver),
	}

	if s.cache != nil {
		_ = s.cache.SetBondSummary(ctx, driverID, &redis.CachedBondSummary{
			Balance:  summary.Balance.String(),
			Required: summary.Required.String(),
			Percent:  summary.Percent,
		})
	}

	return summary, nil
}

// CheckSufficiency reports whether the driver's bond meets the required
// threshold.
func (s *BondService) CheckSufficiency(ctx context.Context, driverID string) (*BondSufficiency, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	sufficiency := Sufficiency(driver)
	return &sufficiency, nil
}

// CheckBurnAlert reports whether a bond burn alert is active for the
// driver.
func (s *BondService) CheckBurnAlert(ctx context.Context, driverID string) (*BondBurnAlert, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	alert := BurnAlert(driver, s.burnThreshold)
	return &alert, nil
}

// DepositRequest contains the parameters for posting a deposit.
type DepositRequest struct {
	DriverID      string
	Amount        decimal.Decimal
	ReferenceType domain.ReferenceType
	ReferenceID   string
	Notes         string
	Actor         string
}

// PostDeposit appends a deposit to the driver's ledger and updates the
// balance in the same atomic unit.
func (s *BondService) PostDeposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error) {
	return s.post(ctx, postRequest{
		DriverID:      req.DriverID,
		Type:          domain.TransactionTypeDeposit,
		Amount:        req.Amount,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Description:   req.Notes,
		Actor:         req.Actor,
	})
}

// DeductionRequest contains the parameters for posting a deduction.
type DeductionRequest struct {
	DriverID      string
	Amount        decimal.Decimal
	Mode          domain.DeductionMode
	ReferenceType domain.ReferenceType
	ReferenceID   string
	Notes         string
	Actor         string
}

// PostDeduction appends a deduction to the driver's ledger. In
// discretionary mode a deduction that would take the balance below
// zero fails with ErrInsufficientBalance; in forced mode the balance
// floors at zero instead.
func (s *BondService) PostDeduction(ctx context.Context, req DeductionRequest) (*domain.Transaction, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.DeductionDiscretionary
	}
	return s.post(ctx, postRequest{
		DriverID:      req.DriverID,
		Type:          domain.TransactionTypeDeduction,
		Amount:        req.Amount,
		Mode:          mode,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Description:   req.Notes,
		Actor:         req.Actor,
	})
}

// ListTransactions retrieves committed ledger transactions matching the
// filter, newest first.
func (s *BondService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, page, pageSize int) ([]*domain.Transaction, int, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.ledgerRepo.List(ctx, filter, limit, offset)
}

// AuditLedger replays a driver's full transaction history and compares
// the result against the stored balance.
func (s *BondService) AuditLedger(ctx context.Context, driverID string) (bool, decimal.Decimal, decimal.Decimal, error) {
	if driverID == "" {
		return false, decimal.Zero, decimal.Zero, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return false, decimal.Zero, decimal.Zero, err
	}

	txs, err := s.ledgerRepo.ListByDriver(ctx, driverID)
	if err != nil {
		return false, decimal.Zero, decimal.Zero, err
	}

	replayed := domain.ReplayBalance(txs)
	return replayed.Equal(driver.BondBalance), replayed, driver.BondBalance, nil
}

type postRequest struct {
	DriverID      string
	Type          domain.TransactionType
	Amount        decimal.Decimal
	Mode          domain.DeductionMode
	ReferenceType domain.ReferenceType
	ReferenceID   string
	Description   string
	Actor         string
}

func (s *BondService) post(ctx context.Context, req postRequest) (*domain.Transaction, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var created *domain.Transaction
	err := s.uow.Within(ctx, func(repos repository.Repos) error {
		driver, err := repos.Drivers.GetForUpdate(ctx, req.DriverID)
		if err != nil {
			return err
		}

		newBalance, err := nextBalance(driver.BondBalance, req.Type, req.Amount, req.Mode)
		if err != nil {
			return err
		}

		tx := &domain.Transaction{
			ID:            uuid.New().String(),
			DriverID:      req.DriverID,
			Type:          req.Type,
			Amount:        req.Amount,
			BalanceAfter:  newBalance,
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			Description:   req.Description,
			CreatedBy:     req.Actor,
			CreatedAt:     time.Now().UTC(),
		}

		if err := repos.Ledger.Create(ctx, tx); err != nil {
			return err
		}

		if err := repos.Drivers.UpdateBondBalance(ctx, req.DriverID, newBalance); err != nil {
			return err
		}

		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateBondSummary(ctx, req.DriverID)
	}

	s.log.WithFields(logrus.Fields{
		"driver_id":     req.DriverID,
		"type":          req.Type,
		"amount":        req.Amount.String(),
		"balance_after": created.BalanceAfter.String(),
	}).Info("bond transaction posted")

	return created, nil
}

// nextBalance applies a movement to the current balance. Forced
// deductions floor at zero; discretionary deductions that would go
// negative are rejected.
func nextBalance(balance decimal.Decimal, txType domain.TransactionType, amount decimal.Decimal, mode domain.DeductionMode) (decimal.Decimal, error) {
	if txType == domain.TransactionTypeDeposit {
		return balance.Add(amount), nil
	}

	newBalance := balance.Sub(amount)
	if newBalance.IsNegative() {
		if mode != domain.DeductionForced {
			return decimal.Zero, ErrInsufficientBalance
		}
		newBalance = decimal.Zero
	}
	return newBalance, nil
}

// pageBounds converts 1-based page/pageSize into limit/offset with
// sane defaults.
func pageBounds(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
