package service

import (
	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
)

// DefaultBurnAlertThreshold is the percent below which a bond burn
// alert becomes active.
const DefaultBurnAlertThreshold = 20

// BondSufficiency is the result of a bond sufficiency check.
type BondSufficiency struct {
	CanStartShift bool
	Shortfall     decimal.Decimal
}

// BondBurnAlert is the result of a burn alert check.
type BondBurnAlert struct {
	IsActive  bool
	Percent   int
	Threshold int
}

// The balance guard functions are pure derivations over the driver's
// current balance snapshot. Nothing here is stored, so the answers can
// never drift from the ledger.

// BondPercent returns the bond balance as a rounded percentage of the
// required threshold. A zero requirement counts as fully funded.
func BondPercent(driver *domain.Driver) int {
	if !driver.BondRequired.IsPositive() {
		return 100
	}
	percent := driver.BondBalance.Div(driver.BondRequired).Mul(decimal.NewFromInt(100))
	return int(percent.Round(0).IntPart())
}

// Sufficiency reports whether the driver's bond covers the required
// threshold and, if not, by how much it falls short.
func Sufficiency(driver *domain.Driver) BondSufficiency {
	shortfall := driver.BondRequired.Sub(driver.BondBalance)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	return BondSufficiency{
		CanStartShift: BondPercent(driver) >= 100,
		Shortfall:     shortfall,
	}
}

// BurnAlert reports whether the bond has burned down below the given
// percent threshold.
func BurnAlert(driver *domain.Driver, thresholdPercent int) BondBurnAlert {
	percent := BondPercent(driver)
	return BondBurnAlert{
		IsActive:  percent < thresholdPercent,
		Percent:   percent,
		Threshold: thresholdPercent,
	}
}
