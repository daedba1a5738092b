package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/parser"
)

// AuditShift is one persisted shift with everything needed to re-derive its earnings.
type AuditShift struct {
	Shift models.ShiftTotals

	// Employees is the raw embedded payload, re-parsed during the audit.
	Employees any

	Rate    models.RateTableEntry
	TaxRate float64
}

// NameKey maps a raw employee name to the key used for cumulative earnings.
// A nil NameKey keys by the raw name.
type NameKey func(name string) string

// Audit re-derives earnings for every shift and checks them against the
// calculator's invariants. It never fails: every violation is recorded in the
// summary's CriticalErrors, naming the shift and the invariant.
//
// Checks per shift:
// - the employee payload parses
// - totalJobHours > 0 when employees are present
// - the calculator accepts the shift (hours sum <= totalJobHours, shares >= 0)
// - shares are conserved against the independently computed pools
// - each breakdown independently satisfies 0 <= hoursFraction <= 1 and gross >= 0
//
// A shift-level violation marks every employee of the shift invalid. A
// payload that does not parse has no employees to count and counts once.
func Audit(shifts []AuditShift, key NameKey) models.ValidationSummary {
	summary := models.ValidationSummary{
		EarningsByEmployee: make(map[string]float64),
		CriticalErrors:     []string{},
		LedgerDrift:        []string{},
	}
	if key == nil {
		key = func(name string) string { return name }
	}

	ordered := make([]AuditShift, len(shifts))
	copy(ordered, shifts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Shift.ID < ordered[j].Shift.ID })

	for _, s := range ordered {
		summary.ShiftsAudited++
		auditShift(&summary, s, key)
	}

	return summary
}

func auditShift(summary *models.ValidationSummary, s AuditShift, key NameKey) {
	shiftID := s.Shift.ID
	critical := func(format string, args ...any) {
		summary.CriticalErrors = append(summary.CriticalErrors,
			fmt.Sprintf("shift %d: ", shiftID)+fmt.Sprintf(format, args...))
	}

	employees, err := parser.Parse(s.Employees)
	if err != nil {
		critical("employee payload: %v", err)
		summary.InvalidCount++
		return
	}
	if len(employees) == 0 {
		return
	}

	if s.Shift.TotalJobHours <= 0 {
		critical("totalJobHours must be > 0 when employees are present (got %v, %d employees)", s.Shift.TotalJobHours, len(employees))
		summary.InvalidCount += len(employees)
		return
	}

	breakdowns, err := Calculate(s.Shift, s.Rate, s.TaxRate, employees)
	if err != nil {
		critical("%v", err)
		summary.InvalidCount += len(employees)
		return
	}

	pools, err := ComputePools(s.Shift, s.Rate)
	if err == nil {
		err = CheckConservation(s.Shift.TotalJobHours, pools, breakdowns)
	}
	if err != nil {
		critical("%v", err)
		summary.InvalidCount += len(employees)
		return
	}

	for _, b := range breakdowns {
		if b.HoursFraction < 0 || b.HoursFraction > 1+Epsilon {
			critical("%s hoursFraction %v outside [0,1]", b.Name, b.HoursFraction)
			summary.InvalidCount++
			continue
		}
		if b.GrossEarnings < 0 {
			critical("%s earnings %.2f are negative", b.Name, b.GrossEarnings)
			summary.InvalidCount++
			continue
		}
		summary.ValidCount++
		summary.EarningsByEmployee[key(b.Name)] += b.GrossEarnings
	}
}
