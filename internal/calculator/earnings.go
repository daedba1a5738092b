// Package calculator turns shift totals into per-employee earnings.
// Everything in this package is pure: no I/O, no clocks, no globals.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/valetpay/internal/models"
)

// Epsilon is the tolerance for floating-point comparisons of hours and money.
const Epsilon = 1e-6

var (
	// ErrHoursExceedTotal means employee hours, alone or combined, exceed the
	// shift total.
	ErrHoursExceedTotal = errors.New("employee hours exceed total job hours")

	// ErrNegativeEarnings means a computed share is negative, which points at a
	// rate-table or input defect.
	ErrNegativeEarnings = errors.New("negative earnings")

	// ErrInvalidShift means the shift totals themselves are unusable.
	ErrInvalidShift = errors.New("invalid shift totals")

	// ErrPoolMismatch means the shares do not add back up to their pools.
	ErrPoolMismatch = errors.New("shares do not sum to pool")
)

// Pools holds the amounts prorated across a shift's employees.
type Pools struct {
	TipModel models.TipModel

	Commission float64
	Tips       float64
	MoneyOwed  float64

	// Channel parts of Tips; zero under the blended model.
	CreditTips  float64
	CashTips    float64
	ReceiptTips float64
}

// ResolveTipModel returns the shift's explicit tip model, or infers one:
// shifts that carry any separate channel figure use the channel model.
func ResolveTipModel(shift models.ShiftTotals) models.TipModel {
	if shift.TipModel != models.TipModelAuto {
		return shift.TipModel
	}
	if shift.CreditTransactions > 0 || shift.TotalReceipts > 0 || shift.CompanyCashTurnIn > 0 {
		return models.TipModelChannel
	}
	return models.TipModelBlended
}

// ComputePools computes the commission, tip and money-owed pools of a shift.
//
// Formulas:
//   - commission = totalCars × commissionPerCar
//   - blended tips = totalCars × perCarPrice − totalCreditSales
//   - channel tips = |creditTransactions × tipRate − totalCreditSales|
//     + |totalCash − companyCashTurnIn| + totalReceipts × receiptTip
//   - money owed = max(0, totalCreditSales + totalReceipts × receiptSalePrice − totalTurnIn)
func ComputePools(shift models.ShiftTotals, rate models.RateTableEntry) (Pools, error) {
	cars := float64(shift.TotalCars)
	p := Pools{
		TipModel:   ResolveTipModel(shift),
		Commission: cars * rate.CommissionPerCar,
	}

	switch p.TipModel {
	case models.TipModelBlended:
		p.Tips = cars*rate.PerCarPrice - shift.TotalCreditSales
	case models.TipModelChannel:
		p.CreditTips = math.Abs(float64(shift.CreditTransactions)*rate.TipRate - shift.TotalCreditSales)
		p.CashTips = math.Abs(shift.TotalCash - shift.CompanyCashTurnIn)
		p.ReceiptTips = float64(shift.TotalReceipts) * rate.ReceiptTip
		p.Tips = p.CreditTips + p.CashTips + p.ReceiptTips
	default:
		return Pools{}, fmt.Errorf("%w: unknown tip model %q", ErrInvalidShift, p.TipModel)
	}

	owed := shift.TotalCreditSales + float64(shift.TotalReceipts)*rate.ReceiptSalePrice - shift.TotalTurnIn
	p.MoneyOwed = math.Max(0, owed)

	return p, nil
}

// Calculate computes one EarningsBreakdown per employee, in input order.
//
// Algorithm:
// - totalJobHours == 0: no payroll impact, empty result
// - the employees' hours must not sum past totalJobHours
// - hoursFraction = hours / totalJobHours
// - each pool is prorated by hoursFraction
// - gross = commission share + tip share
// - tax due = ceil(gross × taxRate)
func Calculate(shift models.ShiftTotals, rate models.RateTableEntry, taxRate float64, employees []models.EmployeeHoursRecord) ([]models.EarningsBreakdown, error) {
	if shift.TotalJobHours < 0 || math.IsNaN(shift.TotalJobHours) {
		return nil, fmt.Errorf("%w: totalJobHours %v is negative", ErrInvalidShift, shift.TotalJobHours)
	}
	if taxRate < 0 || taxRate > 1 {
		return nil, fmt.Errorf("%w: tax rate %v out of range", ErrInvalidShift, taxRate)
	}
	if shift.TotalJobHours == 0 {
		return []models.EarningsBreakdown{}, nil
	}

	pools, err := ComputePools(shift, rate)
	if err != nil {
		return nil, err
	}

	var hours float64
	for _, e := range employees {
		if e.HoursWorked > shift.TotalJobHours+Epsilon {
			return nil, fmt.Errorf("%w: %s worked %v of %v hours", ErrHoursExceedTotal, e.Name, e.HoursWorked, shift.TotalJobHours)
		}
		hours += e.HoursWorked
	}
	if hours > shift.TotalJobHours+Epsilon {
		return nil, fmt.Errorf("%w: employees worked %v of %v hours", ErrHoursExceedTotal, hours, shift.TotalJobHours)
	}

	breakdowns := make([]models.EarningsBreakdown, 0, len(employees))
	for _, e := range employees {
		fraction := math.Min(e.HoursWorked/shift.TotalJobHours, 1)

		b := models.EarningsBreakdown{
			Name:            e.Name,
			Hours:           e.HoursWorked,
			HoursFraction:   fraction,
			CommissionShare: pools.Commission * fraction,
			TipShare:        pools.Tips * fraction,
			MoneyOwedShare:  pools.MoneyOwed * fraction,
			CashPaid:        e.CashPaid,
		}
		b.GrossEarnings = b.CommissionShare + b.TipShare

		if err := checkNonNegative(b); err != nil {
			return nil, err
		}

		b.TaxDue = TaxDue(b.GrossEarnings, taxRate)
		breakdowns = append(breakdowns, b)
	}

	return breakdowns, nil
}

// TaxDue returns ceil(gross × rate). Gross is first rounded to Epsilon so that
// proration noise (200.00000000000003) does not push the ceiling up a unit.
func TaxDue(gross, rate float64) float64 {
	g := decimal.NewFromFloat(gross).Round(6)
	return g.Mul(decimal.NewFromFloat(rate)).Ceil().InexactFloat64()
}

func checkNonNegative(b models.EarningsBreakdown) error {
	shares := []struct {
		name  string
		value float64
	}{
		{"commission", b.CommissionShare},
		{"tip", b.TipShare},
		{"money owed", b.MoneyOwedShare},
	}
	for _, s := range shares {
		if s.value < 0 {
			return fmt.Errorf("%w: %s %s share is %.2f", ErrNegativeEarnings, b.Name, s.name, s.value)
		}
	}
	return nil
}

// CheckConservation verifies that the shares add back up to the part of each
// pool covered by the employees' hours: the whole pool when the hours sum to
// totalJobHours, proportionally less on a short-staffed shift. Hours summing
// past totalJobHours fail with ErrHoursExceedTotal, unconserved pools with
// ErrPoolMismatch.
func CheckConservation(totalJobHours float64, pools Pools, breakdowns []models.EarningsBreakdown) error {
	var hours, commission, tips, owed float64
	for _, b := range breakdowns {
		hours += b.Hours
		commission += b.CommissionShare
		tips += b.TipShare
		owed += b.MoneyOwedShare
	}

	if hours > totalJobHours+Epsilon {
		return fmt.Errorf("%w: employee hours sum to %v, totalJobHours is %v", ErrHoursExceedTotal, hours, totalJobHours)
	}
	covered := 0.0
	if totalJobHours > 0 {
		covered = math.Min(hours/totalJobHours, 1)
	}

	checks := []struct {
		name      string
		sum, pool float64
	}{
		{"commission", commission, pools.Commission * covered},
		{"tip", tips, pools.Tips * covered},
		{"money owed", owed, pools.MoneyOwed * covered},
	}
	for _, c := range checks {
		if math.Abs(c.sum-c.pool) > Epsilon {
			return fmt.Errorf("%w: %s shares sum to %v, covered pool is %v", ErrPoolMismatch, c.name, c.sum, c.pool)
		}
	}
	return nil
}
