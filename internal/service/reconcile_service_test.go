package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/rates"
)

const twoEmployees = `[{"name":"Alice Park","hoursWorked":5,"cashPaid":10},{"name":"Bob Diaz","hoursWorked":5}]`

// raisedCommission prices location 12 at 5 per car instead of 4.
func raisedCommission() *rates.Config {
	entry := rates.DefaultEntry
	entry.CommissionPerCar = 5
	return &rates.Config{
		Table: rates.NewTable(map[string]models.RateTableEntry{"12": entry}),
		Tax:   rates.DefaultTaxSchedule(),
	}
}

func TestValidate_CleanCorpus(t *testing.T) {
	payroll, store := setupPayroll(t)
	ctx := context.Background()

	for _, day := range []string{"2024-03-09", "2024-03-10"} {
		if _, err := payroll.SubmitShift(ctx, blendedShift(day), twoEmployees); err != nil {
			t.Fatalf("SubmitShift failed: %v", err)
		}
	}

	svc := NewReconciliationService(store, nil, NewLedgerSynchronizer(store, store, 1))
	summary, err := svc.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if summary.ShiftsAudited != 2 || summary.ValidCount != 4 || summary.InvalidCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/4/0", summary.ShiftsAudited, summary.ValidCount, summary.InvalidCount)
	}
	if got := summary.EarningsByEmployee["Alice Park"]; got != 400 {
		t.Errorf("Alice Park earnings = %v, want 400", got)
	}
	if len(summary.CriticalErrors) != 0 || len(summary.LedgerDrift) != 0 {
		t.Errorf("unexpected findings: %v %v", summary.CriticalErrors, summary.LedgerDrift)
	}
}

func TestValidate_ReportsViolations(t *testing.T) {
	payroll, store := setupPayroll(t)
	ctx := context.Background()

	out, err := payroll.SubmitShift(ctx, blendedShift("2024-03-09"), twoEmployees)
	if err != nil {
		t.Fatalf("SubmitShift failed: %v", err)
	}

	// A report written before validation existed: hours above the total.
	bad := &models.ShiftReport{
		ShiftTotals: blendedShift("2024-03-10"),
		Employees:   `[{"name":"Alice Park","hoursWorked":12}]`,
	}
	if err := store.CreateShiftReport(ctx, bad); err != nil {
		t.Fatalf("CreateShiftReport failed: %v", err)
	}

	// A ledger entry whose remaining balance was patched by hand.
	key := out.Ledger[1].Key()
	if _, err := store.MutateLedgerEntry(ctx, key, func(e *models.TaxLedgerEntry) (*models.TaxLedgerEntry, error) {
		e.RemainingAmount = decimal.NewFromInt(7)
		return e, nil
	}); err != nil {
		t.Fatalf("MutateLedgerEntry failed: %v", err)
	}

	svc := NewReconciliationService(store, nil, NewLedgerSynchronizer(store, store, 1))
	summary, err := svc.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if summary.InvalidCount != 1 {
		t.Errorf("InvalidCount = %d, want 1", summary.InvalidCount)
	}
	if len(summary.CriticalErrors) != 2 {
		t.Fatalf("CriticalErrors = %v, want 2", summary.CriticalErrors)
	}
	joined := strings.Join(summary.CriticalErrors, "\n")
	if !strings.Contains(joined, "employee hours exceed total job hours") {
		t.Errorf("missing hours violation in %v", summary.CriticalErrors)
	}
	if !strings.Contains(joined, "remainingAmount 7") {
		t.Errorf("missing remaining violation in %v", summary.CriticalErrors)
	}
}

func TestCorrections(t *testing.T) {
	payroll, store := setupPayroll(t)
	ctx := context.Background()

	out, err := payroll.SubmitShift(ctx, blendedShift("2024-03-09"), twoEmployees)
	if err != nil {
		t.Fatalf("SubmitShift failed: %v", err)
	}
	shiftID := out.Report.ID

	svc := NewReconciliationService(store, raisedCommission(), NewLedgerSynchronizer(store, store, 1))

	summary, err := svc.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(summary.LedgerDrift) != 2 {
		t.Errorf("LedgerDrift = %v, want 2 entries", summary.LedgerDrift)
	}
	if len(summary.CriticalErrors) != 0 {
		t.Errorf("drift must not be critical: %v", summary.CriticalErrors)
	}

	corrections, err := svc.ProposeCorrections(ctx)
	if err != nil {
		t.Fatalf("ProposeCorrections failed: %v", err)
	}
	if len(corrections) != 2 {
		t.Fatalf("got %d corrections, want 2", len(corrections))
	}
	c := corrections[0]
	mustDecimalEqual(t, "stored earnings", c.StoredEarnings, "200")
	mustDecimalEqual(t, "recomputed earnings", c.RecomputedEarnings, "250")
	mustDecimalEqual(t, "recomputed tax", c.RecomputedTax, "55")

	// Proposing must not write anything.
	entries, _ := store.ListLedgerEntriesByShift(ctx, shiftID)
	mustDecimalEqual(t, "earnings before apply", entries[0].TotalEarnings, "200")

	result, err := svc.ApplyCorrections(ctx, shiftID)
	if err != nil {
		t.Fatalf("ApplyCorrections failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	alice := result.Entries[0]
	mustDecimalEqual(t, "earnings", alice.TotalEarnings, "250")
	mustDecimalEqual(t, "tax", alice.TaxAmount, "55")
	mustDecimalEqual(t, "paid", alice.PaidAmount, "10")
	mustDecimalEqual(t, "remaining", alice.RemainingAmount, "45")

	again, err := svc.ProposeCorrections(ctx)
	if err != nil {
		t.Fatalf("ProposeCorrections failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("corrections after apply = %+v, want none", again)
	}
}
