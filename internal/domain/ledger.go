package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a ledger movement.
type TransactionType string

const (
	TransactionTypeDeposit   TransactionType = "DEPOSIT"
	TransactionTypeDeduction TransactionType = "DEDUCTION"
)

// ReferenceType identifies the kind of entity that caused a transaction.
type ReferenceType string

const (
	ReferenceTypeIncident ReferenceType = "INCIDENT"
	ReferenceTypeManual   ReferenceType = "MANUAL"
)

// DeductionMode selects how a deduction behaves when it would take the
// balance below zero.
type DeductionMode string

const (
	// DeductionDiscretionary rejects the deduction with an
	// insufficient-balance error.
	DeductionDiscretionary DeductionMode = "DISCRETIONARY"

	// DeductionForced is compulsory business policy: the resulting
	// balance is floored at zero instead of being rejected.
	DeductionForced DeductionMode = "FORCED"
)

// Transaction is a single immutable movement in a driver's bond ledger.
//
// Amount is always a positive magnitude; the sign is implied by Type.
// BalanceAfter is the driver's balance snapshot recorded atomically with
// the movement. Transactions are append-only: never updated, never
// deleted. At most one transaction may exist per
// (driver, reference type, reference id) incident reference.
type Transaction struct {
	ID            string
	DriverID      string
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   string
	Description   string
	CreatedBy     string
	CreatedAt     time.Time
}

// SignedAmount returns the amount with the sign implied by the type.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeDeduction {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ReplayBalance folds a driver's transactions in creation order and
// returns the resulting balance. Deductions floor at zero, matching
// the forced-deduction clamp applied at posting time, so the replayed
// value always equals the stored BondBalance.
func ReplayBalance(txs []*Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.SignedAmount())
		if balance.IsNegative() {
			balance = decimal.Zero
		}
	}
	return balance
}
