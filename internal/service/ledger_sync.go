package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/valetpay/internal/metrics"
	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/registry"
	"github.com/mmynk/valetpay/internal/storage"
)

// DefaultSyncConcurrency bounds the per-employee ledger writes of one sync.
const DefaultSyncConcurrency = 4

// SyncOptions controls a ledger synchronization.
type SyncOptions struct {
	// FullRecompute overwrites the earnings and tax snapshots of existing
	// entries. Paid amounts are never reset.
	FullRecompute bool
}

// SyncWarning reports an employee whose ledger entry was not written.
type SyncWarning struct {
	Employee string `json:"employee"`
	Reason   string `json:"reason"`
}

// SyncResult is the outcome of one synchronization, in input order.
type SyncResult struct {
	Entries  []*models.TaxLedgerEntry `json:"entries"`
	Warnings []SyncWarning            `json:"warnings"`
}

// LedgerSynchronizer writes computed earnings into the tax ledger.
type LedgerSynchronizer struct {
	employees   storage.EmployeeDirectory
	ledger      storage.LedgerStore
	concurrency int
}

// NewLedgerSynchronizer creates a synchronizer. A concurrency below 1 uses
// DefaultSyncConcurrency.
func NewLedgerSynchronizer(employees storage.EmployeeDirectory, ledger storage.LedgerStore, concurrency int) *LedgerSynchronizer {
	if concurrency < 1 {
		concurrency = DefaultSyncConcurrency
	}
	return &LedgerSynchronizer{employees: employees, ledger: ledger, concurrency: concurrency}
}

// syncItem is one resolved employee's merged share of a shift.
type syncItem struct {
	name     string
	employee models.Employee
	gross    decimal.Decimal
	tax      decimal.Decimal
	cash     decimal.Decimal

	entry   *models.TaxLedgerEntry
	warning *SyncWarning
}

// Synchronize applies a shift's breakdowns to the ledger, one atomic
// read-modify-write per resolved employee.
//
// New pairs are created with the earnings and tax snapshots and the record's
// cash as paid. Existing pairs get the cash added to paid; a zero cash delta
// leaves them untouched. Employees that cannot be resolved, or whose write
// fails, are reported as warnings without failing the others. Only a failure
// to load the directory or a cancelled context fails the call.
func (s *LedgerSynchronizer) Synchronize(ctx context.Context, shift models.ShiftTotals, breakdowns []models.EarningsBreakdown, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{
		Entries:  []*models.TaxLedgerEntry{},
		Warnings: []SyncWarning{},
	}
	if len(breakdowns) == 0 {
		return result, nil
	}

	directory, err := s.employees.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee directory: %w", err)
	}

	items := s.resolve(shift.ID, breakdowns, directory)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, item := range items {
		if item.warning != nil {
			continue
		}
		g.Go(func() error {
			s.syncOne(gctx, shift, item, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.warning != nil {
			result.Warnings = append(result.Warnings, *item.warning)
			continue
		}
		result.Entries = append(result.Entries, item.entry)
	}

	return result, nil
}

// resolve maps breakdown names to registry employees and merges breakdowns
// that resolve to the same employee, so each pair gets a single write.
func (s *LedgerSynchronizer) resolve(shiftID int64, breakdowns []models.EarningsBreakdown, directory []models.Employee) []*syncItem {
	var items []*syncItem
	byEmployee := make(map[int64]*syncItem)

	for _, b := range breakdowns {
		gross := decimal.NewFromFloat(b.GrossEarnings).Round(6)
		tax := decimal.NewFromFloat(b.TaxDue)
		cash := decimal.NewFromFloat(b.CashPaid).Round(2)

		employee, kind, err := registry.Resolve(b.Name, directory)
		if err != nil {
			slog.Warn("Synchronize: skipping unresolved employee",
				"shift_id", shiftID,
				"employee", b.Name,
				"error", err,
			)
			metrics.LedgerSyncs.WithLabelValues(metrics.SyncSkipped).Inc()
			items = append(items, &syncItem{
				name:    b.Name,
				warning: &SyncWarning{Employee: b.Name, Reason: err.Error()},
			})
			continue
		}
		if kind != registry.MatchExact {
			slog.Info("Synchronize: employee resolved by partial match",
				"shift_id", shiftID,
				"employee", b.Name,
				"employee_id", employee.ID,
				"match", kind,
			)
		}

		if prev, ok := byEmployee[employee.ID]; ok {
			slog.Warn("Synchronize: merging duplicate employee records",
				"shift_id", shiftID,
				"employee_id", employee.ID,
				"names", []string{prev.name, b.Name},
			)
			prev.gross = prev.gross.Add(gross)
			prev.tax = prev.tax.Add(tax)
			prev.cash = prev.cash.Add(cash)
			continue
		}

		item := &syncItem{name: b.Name, employee: employee, gross: gross, tax: tax, cash: cash}
		byEmployee[employee.ID] = item
		items = append(items, item)
	}

	return items
}

func (s *LedgerSynchronizer) syncOne(ctx context.Context, shift models.ShiftTotals, item *syncItem, opts SyncOptions) {
	key := models.LedgerKey{EmployeeID: item.employee.ID, ShiftID: shift.ID}
	shiftDate := shift.Date.Format(dateLayout)

	var outcome string
	entry, err := s.ledger.MutateLedgerEntry(ctx, key, func(existing *models.TaxLedgerEntry) (*models.TaxLedgerEntry, error) {
		if existing == nil {
			outcome = metrics.SyncCreated
			return &models.TaxLedgerEntry{
				LocationID:      shift.LocationID,
				ShiftDate:       shiftDate,
				TotalEarnings:   item.gross,
				TaxAmount:       item.tax,
				PaidAmount:      item.cash,
				RemainingAmount: models.Remaining(item.tax, item.cash),
			}, nil
		}

		if item.cash.IsZero() && !opts.FullRecompute {
			outcome = metrics.SyncUnchanged
			return nil, nil
		}

		outcome = metrics.SyncUpdated
		existing.PaidAmount = existing.PaidAmount.Add(item.cash)
		if opts.FullRecompute {
			existing.LocationID = shift.LocationID
			existing.ShiftDate = shiftDate
			existing.TotalEarnings = item.gross
			existing.TaxAmount = item.tax
		}
		existing.RemainingAmount = models.Remaining(existing.TaxAmount, existing.PaidAmount)
		return existing, nil
	})
	if err != nil {
		slog.Warn("Synchronize: ledger write failed",
			"shift_id", shift.ID,
			"employee_id", item.employee.ID,
			"error", err,
		)
		metrics.LedgerSyncs.WithLabelValues(metrics.SyncFailed).Inc()
		item.warning = &SyncWarning{Employee: item.name, Reason: err.Error()}
		return
	}

	metrics.LedgerSyncs.WithLabelValues(outcome).Inc()
	slog.Debug("Ledger entry synced",
		"shift_id", shift.ID,
		"employee_id", item.employee.ID,
		"outcome", outcome,
		"paid", entry.PaidAmount.String(),
		"remaining", entry.RemainingAmount.String(),
	)
	item.entry = entry
}
