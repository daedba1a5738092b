package models

import "github.com/shopspring/decimal"

// LedgerKey identifies the single ledger entry of an (employee, shift) pair.
type LedgerKey struct {
	EmployeeID int64 `json:"employeeId"`
	ShiftID    int64 `json:"shiftId"`
}

// TaxLedgerEntry is the durable record of tax owed and paid by one employee
// for one shift. There is at most one entry per LedgerKey.
type TaxLedgerEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string `json:"id"`

	EmployeeID int64  `json:"employeeId"`
	ShiftID    int64  `json:"shiftId"`
	LocationID string `json:"locationId"`

	// ShiftDate is the date of the shift, used for monthly summaries.
	ShiftDate string `json:"shiftDate"`

	// TotalEarnings is the gross earnings snapshot taken at creation
	// (or at the last full recompute).
	TotalEarnings decimal.Decimal `json:"totalEarnings"`

	// TaxAmount is the tax due snapshot.
	TaxAmount decimal.Decimal `json:"taxAmount"`

	// PaidAmount accumulates every cash payment ever synced for the pair.
	PaidAmount decimal.Decimal `json:"paidAmount"`

	// RemainingAmount = max(0, TaxAmount − PaidAmount).
	RemainingAmount decimal.Decimal `json:"remainingAmount"`

	// CreatedAt is the Unix timestamp of the first sync.
	CreatedAt int64 `json:"createdAt"`

	// LastSyncedAt is the Unix timestamp of the latest sync.
	LastSyncedAt int64 `json:"lastSyncedAt"`
}

// Key returns the entry's ledger key.
func (e *TaxLedgerEntry) Key() LedgerKey {
	return LedgerKey{EmployeeID: e.EmployeeID, ShiftID: e.ShiftID}
}

// Remaining returns max(0, tax − paid).
func Remaining(tax, paid decimal.Decimal) decimal.Decimal {
	r := tax.Sub(paid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// LedgerCorrection is a reviewable proposal to re-snapshot one ledger entry
// whose stored earnings no longer match a fresh computation.
type LedgerCorrection struct {
	EntryID    string `json:"entryId"`
	EmployeeID int64  `json:"employeeId"`
	ShiftID    int64  `json:"shiftId"`

	StoredEarnings     decimal.Decimal `json:"storedEarnings"`
	RecomputedEarnings decimal.Decimal `json:"recomputedEarnings"`
	StoredTax          decimal.Decimal `json:"storedTax"`
	RecomputedTax      decimal.Decimal `json:"recomputedTax"`
}

// MonthlyPaySummary aggregates one employee's ledger entries for a month.
type MonthlyPaySummary struct {
	// Month is formatted "2006-01".
	Month     string          `json:"month"`
	Shifts    int             `json:"shifts"`
	Earnings  decimal.Decimal `json:"earnings"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}
