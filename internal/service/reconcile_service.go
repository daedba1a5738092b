package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/valetpay/internal/calculator"
	"github.com/mmynk/valetpay/internal/metrics"
	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/parser"
	"github.com/mmynk/valetpay/internal/rates"
	"github.com/mmynk/valetpay/internal/registry"
	"github.com/mmynk/valetpay/internal/storage"
)

// driftTolerance is how far a stored earnings snapshot may be from a fresh
// computation before it is reported.
var driftTolerance = decimal.NewFromFloat(0.01)

// ReconciliationService audits the shift corpus and the tax ledger against
// the current calculator and rates. It only reads, except for
// ApplyCorrections.
type ReconciliationService struct {
	store   storage.Store
	payroll payroll
	sync    *LedgerSynchronizer
}

// NewReconciliationService creates a ReconciliationService. A nil cfg uses
// the built-in rates.
func NewReconciliationService(store storage.Store, cfg *rates.Config, sync *LedgerSynchronizer) *ReconciliationService {
	return &ReconciliationService{store: store, payroll: newPayroll(cfg), sync: sync}
}

// recomputed is what the calculator produces today for one ledger pair.
type recomputed struct {
	gross decimal.Decimal
	tax   decimal.Decimal
}

// ledgerCheck is a ledger entry compared with its recomputation.
// expected is nil when the current shift report no longer yields the pair.
// Entries of shifts that no longer compute are never reported as drifting;
// the audit reports those shifts.
type ledgerCheck struct {
	entry      *models.TaxLedgerEntry
	expected   *recomputed
	computable bool
}

func (c ledgerCheck) drifts() bool {
	if !c.computable {
		return false
	}
	if c.expected == nil {
		return true
	}
	return c.entry.TotalEarnings.Sub(c.expected.gross).Abs().GreaterThan(driftTolerance) ||
		!c.entry.TaxAmount.Equal(c.expected.tax)
}

// Validate re-derives earnings for every stored shift, checks the
// calculator's invariants and cross-checks the ledger. Data problems are
// reported in the summary; only store failures return an error.
func (s *ReconciliationService) Validate(ctx context.Context) (*models.ValidationSummary, error) {
	slog.Info("Reconciliation started")

	reports, directory, err := s.corpus(ctx)
	if err != nil {
		return nil, err
	}

	shifts := make([]calculator.AuditShift, 0, len(reports))
	for _, r := range reports {
		rate, taxRate := s.payroll.rateFor(r.ShiftTotals)
		shifts = append(shifts, calculator.AuditShift{
			Shift:     r.ShiftTotals,
			Employees: r.Employees,
			Rate:      rate,
			TaxRate:   taxRate,
		})
	}
	summary := calculator.Audit(shifts, nameKey(directory))

	checks, err := s.checkLedger(ctx, reports, directory)
	if err != nil {
		return nil, err
	}
	for _, c := range checks {
		e := c.entry
		if want := models.Remaining(e.TaxAmount, e.PaidAmount); !e.RemainingAmount.Equal(want) {
			summary.CriticalErrors = append(summary.CriticalErrors, fmt.Sprintf(
				"shift %d: ledger entry %s for employee %d has remainingAmount %s, want max(0, %s - %s) = %s",
				e.ShiftID, e.ID, e.EmployeeID, e.RemainingAmount, e.TaxAmount, e.PaidAmount, want))
		}
		if !c.drifts() {
			continue
		}
		if c.expected == nil {
			summary.LedgerDrift = append(summary.LedgerDrift, fmt.Sprintf(
				"shift %d: employee %d has a ledger entry but is not in the current shift report",
				e.ShiftID, e.EmployeeID))
			continue
		}
		summary.LedgerDrift = append(summary.LedgerDrift, fmt.Sprintf(
			"shift %d: employee %d stored earnings %s tax %s, recomputed earnings %s tax %s",
			e.ShiftID, e.EmployeeID, e.TotalEarnings.StringFixed(2), e.TaxAmount,
			c.expected.gross.StringFixed(2), c.expected.tax))
	}

	metrics.ReconciliationRuns.Inc()
	metrics.ReconciliationViolations.Set(float64(len(summary.CriticalErrors)))
	slog.Info("Reconciliation finished",
		"shifts", summary.ShiftsAudited,
		"valid", summary.ValidCount,
		"invalid", summary.InvalidCount,
		"critical_errors", len(summary.CriticalErrors),
		"ledger_drift", len(summary.LedgerDrift),
	)

	return &summary, nil
}

// ProposeCorrections lists one reviewable correction per ledger entry whose
// snapshots differ from a fresh computation. Nothing is written.
func (s *ReconciliationService) ProposeCorrections(ctx context.Context) ([]models.LedgerCorrection, error) {
	reports, directory, err := s.corpus(ctx)
	if err != nil {
		return nil, err
	}
	checks, err := s.checkLedger(ctx, reports, directory)
	if err != nil {
		return nil, err
	}

	corrections := []models.LedgerCorrection{}
	for _, c := range checks {
		if !c.drifts() {
			continue
		}
		if c.expected == nil {
			slog.Warn("ProposeCorrections: no recomputation for ledger entry",
				"entry_id", c.entry.ID,
				"shift_id", c.entry.ShiftID,
				"employee_id", c.entry.EmployeeID,
			)
			continue
		}
		corrections = append(corrections, models.LedgerCorrection{
			EntryID:            c.entry.ID,
			EmployeeID:         c.entry.EmployeeID,
			ShiftID:            c.entry.ShiftID,
			StoredEarnings:     c.entry.TotalEarnings,
			RecomputedEarnings: c.expected.gross,
			StoredTax:          c.entry.TaxAmount,
			RecomputedTax:      c.expected.tax,
		})
	}

	return corrections, nil
}

// ApplyCorrections re-snapshots the ledger entries of one shift from its
// stored report. Paid amounts are kept as they are.
func (s *ReconciliationService) ApplyCorrections(ctx context.Context, shiftID int64) (*SyncResult, error) {
	report, err := s.store.GetShiftReport(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	records, err := parser.Parse(report.Employees)
	if err != nil {
		return nil, reject(err)
	}
	breakdowns, err := s.payroll.breakdowns(report.ShiftTotals, records)
	if err != nil {
		return nil, reject(err)
	}
	for i := range breakdowns {
		breakdowns[i].CashPaid = 0
	}

	result, err := s.sync.Synchronize(ctx, report.ShiftTotals, breakdowns, SyncOptions{FullRecompute: true})
	if err != nil {
		return nil, err
	}

	slog.Info("Corrections applied",
		"shift_id", shiftID,
		"entries", len(result.Entries),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func (s *ReconciliationService) corpus(ctx context.Context) ([]*models.ShiftReport, []models.Employee, error) {
	reports, err := s.store.ListShiftReports(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list shift reports: %w", err)
	}
	directory, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employee directory: %w", err)
	}
	return reports, directory, nil
}

// checkLedger pairs every ledger entry with what its shift yields today.
func (s *ReconciliationService) checkLedger(ctx context.Context, reports []*models.ShiftReport, directory []models.Employee) ([]ledgerCheck, error) {
	expected := make(map[models.LedgerKey]*recomputed)
	computable := make(map[int64]bool)

	for _, r := range reports {
		records, err := parser.Parse(r.Employees)
		if err != nil {
			continue
		}
		breakdowns, err := s.payroll.breakdowns(r.ShiftTotals, records)
		if err != nil {
			continue
		}
		computable[r.ID] = true

		for _, b := range breakdowns {
			employee, _, err := registry.Resolve(b.Name, directory)
			if err != nil {
				continue
			}
			key := models.LedgerKey{EmployeeID: employee.ID, ShiftID: r.ID}
			rc, ok := expected[key]
			if !ok {
				rc = &recomputed{}
				expected[key] = rc
			}
			rc.gross = rc.gross.Add(decimal.NewFromFloat(b.GrossEarnings).Round(6))
			rc.tax = rc.tax.Add(decimal.NewFromFloat(b.TaxDue))
		}
	}

	entries, err := s.store.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	checks := make([]ledgerCheck, 0, len(entries))
	for _, e := range entries {
		checks = append(checks, ledgerCheck{
			entry:      e,
			expected:   expected[e.Key()],
			computable: computable[e.ShiftID],
		})
	}
	return checks, nil
}

// nameKey keys cumulative earnings by registry name, falling back to the
// normalized raw name for employees the registry does not know.
func nameKey(directory []models.Employee) calculator.NameKey {
	return func(name string) string {
		if e, _, err := registry.Resolve(name, directory); err == nil {
			return e.Name
		}
		return strings.ToLower(strings.TrimSpace(name))
	}
}
