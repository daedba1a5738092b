package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/mmynk/valetpay/internal/metrics"
	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/parser"
	"github.com/mmynk/valetpay/internal/rates"
	"github.com/mmynk/valetpay/internal/storage"
)

// ShiftOutcome is the result of a submitted or edited shift report.
type ShiftOutcome struct {
	Report     *models.ShiftReport        `json:"report"`
	Breakdowns []models.EarningsBreakdown `json:"breakdowns"`
	Ledger     []*models.TaxLedgerEntry   `json:"ledger"`
	Warnings   []SyncWarning              `json:"warnings"`
}

// PayrollService runs shift reports through parsing, calculation and ledger
// synchronization.
type PayrollService struct {
	store   storage.Store
	payroll payroll
	sync    *LedgerSynchronizer
}

// NewPayrollService creates a PayrollService. A nil cfg uses the built-in rates.
func NewPayrollService(store storage.Store, cfg *rates.Config, sync *LedgerSynchronizer) *PayrollService {
	return &PayrollService{store: store, payroll: newPayroll(cfg), sync: sync}
}

// SubmitShift stores a new shift report and syncs its ledger entries.
// Parser and calculator failures are returned as *RejectionError before
// anything is persisted.
func (s *PayrollService) SubmitShift(ctx context.Context, totals models.ShiftTotals, employees any) (*ShiftOutcome, error) {
	slog.Info("SubmitShift request received",
		"location_id", totals.LocationID,
		"date", totals.Date.Format(dateLayout),
		"shift", totals.Shift,
	)

	report, breakdowns, err := s.prepare(totals, employees)
	if err != nil {
		return nil, s.failed("SubmitShift", err)
	}

	if err := s.store.CreateShiftReport(ctx, report); err != nil {
		return nil, s.failed("SubmitShift", fmt.Errorf("failed to save shift report: %w", err))
	}
	slog.Info("Shift report created", "shift_id", report.ID)

	return s.finish(ctx, "SubmitShift", report, breakdowns)
}

// EditShift replaces a stored shift report and re-syncs its ledger entries.
// Cash in the new payload is added to what was already paid; earnings
// snapshots are kept.
func (s *PayrollService) EditShift(ctx context.Context, totals models.ShiftTotals, employees any) (*ShiftOutcome, error) {
	slog.Info("EditShift request received", "shift_id", totals.ID)

	if _, err := s.store.GetShiftReport(ctx, totals.ID); err != nil {
		return nil, s.failed("EditShift", err)
	}

	report, breakdowns, err := s.prepare(totals, employees)
	if err != nil {
		return nil, s.failed("EditShift", err)
	}

	if err := s.store.UpdateShiftReport(ctx, report); err != nil {
		return nil, s.failed("EditShift", fmt.Errorf("failed to update shift report: %w", err))
	}
	slog.Info("Shift report updated", "shift_id", report.ID)

	return s.finish(ctx, "EditShift", report, breakdowns)
}

// ShiftLedger returns the ledger entries of one shift.
func (s *PayrollService) ShiftLedger(ctx context.Context, shiftID int64) ([]*models.TaxLedgerEntry, error) {
	if _, err := s.store.GetShiftReport(ctx, shiftID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListLedgerEntriesByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.TaxLedgerEntry{}
	}
	return entries, nil
}

// MonthlyPaySummary aggregates an employee's ledger entries for one year by
// calendar month of the shift date. Months without shifts are omitted.
func (s *PayrollService) MonthlyPaySummary(ctx context.Context, employeeID int64, year int) ([]models.MonthlyPaySummary, error) {
	y := strconv.Itoa(year)
	entries, err := s.store.ListLedgerEntriesByEmployee(ctx, employeeID, y+"-01-01", y+"-12-31")
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	byMonth := make(map[string]*models.MonthlyPaySummary)
	for _, e := range entries {
		if len(e.ShiftDate) < 7 {
			slog.Warn("MonthlyPaySummary: ledger entry without shift date", "entry_id", e.ID)
			continue
		}
		month := e.ShiftDate[:7]
		m, ok := byMonth[month]
		if !ok {
			m = &models.MonthlyPaySummary{Month: month}
			byMonth[month] = m
		}
		m.Shifts++
		m.Earnings = m.Earnings.Add(e.TotalEarnings)
		m.TaxAmount = m.TaxAmount.Add(e.TaxAmount)
		m.Paid = m.Paid.Add(e.PaidAmount)
		m.Remaining = m.Remaining.Add(e.RemainingAmount)
	}

	summaries := make([]models.MonthlyPaySummary, 0, len(byMonth))
	for _, m := range byMonth {
		m.Earnings = m.Earnings.Round(2)
		summaries = append(summaries, *m)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Month < summaries[j].Month })

	return summaries, nil
}

// prepare parses and prices a shift without touching the store.
func (s *PayrollService) prepare(totals models.ShiftTotals, employees any) (*models.ShiftReport, []models.EarningsBreakdown, error) {
	records, err := parser.Parse(employees)
	if err != nil {
		return nil, nil, reject(err)
	}

	breakdowns, err := s.payroll.breakdowns(totals, records)
	if err != nil {
		return nil, nil, reject(err)
	}

	canonical, err := parser.Encode(records)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode employees: %w", err)
	}

	return &models.ShiftReport{ShiftTotals: totals, Employees: canonical}, breakdowns, nil
}

func (s *PayrollService) finish(ctx context.Context, op string, report *models.ShiftReport, breakdowns []models.EarningsBreakdown) (*ShiftOutcome, error) {
	result, err := s.sync.Synchronize(ctx, report.ShiftTotals, breakdowns, SyncOptions{})
	if err != nil {
		return nil, s.failed(op, fmt.Errorf("failed to sync ledger: %w", err))
	}

	metrics.ShiftSubmissions.WithLabelValues(metrics.SubmissionAccepted).Inc()
	if len(result.Warnings) > 0 {
		slog.Warn(op+": shift saved with ledger warnings",
			"shift_id", report.ID,
			"warnings", len(result.Warnings),
		)
	}

	return &ShiftOutcome{
		Report:     report,
		Breakdowns: breakdowns,
		Ledger:     result.Entries,
		Warnings:   result.Warnings,
	}, nil
}

func (s *PayrollService) failed(op string, err error) error {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		metrics.ShiftSubmissions.WithLabelValues(metrics.SubmissionRejected).Inc()
		slog.Warn(op+" rejected", "field", rejection.Field, "error", rejection.Err)
		return err
	}
	metrics.ShiftSubmissions.WithLabelValues(metrics.SubmissionError).Inc()
	slog.Error(op+" failed", "error", err)
	return err
}
