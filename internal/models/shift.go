package models

import "time"

// TipModel selects how a shift's tip pool is computed.
// Reports from different vintages use different models.
type TipModel string

const (
	// TipModelAuto infers the model from which channels the shift carries.
	TipModelAuto TipModel = ""

	// TipModelBlended uses a single per-car price:
	// tips = totalCars × perCarPrice − totalCreditSales.
	TipModelBlended TipModel = "blended"

	// TipModelChannel computes credit, cash and receipt tips independently and sums them.
	TipModelChannel TipModel = "channel"
)

// ShiftTotals holds the aggregate totals of one shift report.
type ShiftTotals struct {
	// ID identifies the shift report.
	ID int64 `json:"id"`

	// LocationID is the stable location identifier used for rate lookup.
	LocationID string `json:"locationId"`

	// Date is the calendar date of the shift.
	Date time.Time `json:"date"`

	// Shift is the shift label (e.g., "AM", "PM", "Event").
	Shift string `json:"shift"`

	// TotalCars is the number of cars parked during the shift.
	TotalCars int `json:"totalCars"`

	// CreditTransactions is the number of credit-card transactions.
	CreditTransactions int `json:"creditTransactions"`

	// TotalCreditSales is the total amount charged on credit cards.
	TotalCreditSales float64 `json:"totalCreditSales"`

	// TotalReceipts is the number of receipts (validated/prepaid tickets).
	TotalReceipts int `json:"totalReceipts"`

	// TotalCash is the total cash collected.
	TotalCash float64 `json:"totalCash"`

	// CompanyCashTurnIn is the portion of cash turned in to the company.
	CompanyCashTurnIn float64 `json:"companyCashTurnIn"`

	// TotalTurnIn is everything turned in to the company (cash + credit + receipts).
	TotalTurnIn float64 `json:"totalTurnIn"`

	// TotalJobHours is the sum of all employee hours for the shift.
	// Zero means the shift has no payroll impact.
	TotalJobHours float64 `json:"totalJobHours"`

	// TipModel selects the tip formula. Empty means inferred by channel presence.
	TipModel TipModel `json:"tipModel,omitempty"`
}

// ShiftReport is a persisted shift report: its totals plus the embedded
// employee-hours payload in canonical JSON form.
type ShiftReport struct {
	ShiftTotals

	// Employees is the canonical JSON encoding of the employee-hours list.
	Employees string `json:"employees"`

	// CreatedAt is the Unix timestamp when the report was first stored.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last edit.
	UpdatedAt int64 `json:"updatedAt"`
}

// EmployeeHoursRecord is one entry of a shift's embedded employee list.
type EmployeeHoursRecord struct {
	// Name is the employee display name or key as typed into the report.
	// It is a join key into the registry, not an identity.
	Name string `json:"name"`

	// HoursWorked is in [0, 24].
	HoursWorked float64 `json:"hoursWorked"`

	// CashPaid is cash handed in toward this employee's tax obligation with this
	// submission. It is an increment, not a running total.
	CashPaid float64 `json:"cashPaid,omitempty"`
}

// RateTableEntry holds the rates that apply to one location.
type RateTableEntry struct {
	// CommissionPerCar is paid to the crew for every car parked.
	CommissionPerCar float64 `yaml:"commission_per_car" json:"commissionPerCar"`

	// PerCarPrice is the blended per-car price used by the legacy tip model.
	PerCarPrice float64 `yaml:"per_car_price" json:"perCarPrice"`

	// TipRate is the per-transaction price used by the credit channel.
	TipRate float64 `yaml:"tip_rate" json:"tipRate"`

	// ReceiptTip is the fixed tip credited per receipt.
	ReceiptTip float64 `yaml:"receipt_tip" json:"receiptTip"`

	// ReceiptSalePrice is the sale value of one receipt, used for money owed.
	ReceiptSalePrice float64 `yaml:"receipt_sale_price" json:"receiptSalePrice"`
}

// EarningsBreakdown is one employee's computed share of a shift.
// It is derived data and never the source of truth.
type EarningsBreakdown struct {
	// Name is the employee name as it appeared in the shift report.
	Name string `json:"name"`

	Hours         float64 `json:"hours"`
	HoursFraction float64 `json:"hoursFraction"`

	CommissionShare float64 `json:"commissionShare"`
	TipShare        float64 `json:"tipShare"`
	MoneyOwedShare  float64 `json:"moneyOwedShare"`

	// GrossEarnings = CommissionShare + TipShare.
	GrossEarnings float64 `json:"grossEarnings"`

	// TaxDue = ceil(GrossEarnings × tax rate), in whole currency units.
	TaxDue float64 `json:"taxDue"`

	// CashPaid is carried from the input record for the ledger sync.
	CashPaid float64 `json:"cashPaid"`
}
