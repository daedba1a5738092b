package service

import (
	"context"
	"sync"
	"testing"

	"github.com/mmynk/valetpay/internal/models"
)

func TestSynchronize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		calls        [][]models.EarningsBreakdown
		opts         SyncOptions
		validateFunc func(t *testing.T, last *SyncResult)
	}{
		{
			name: "first sync creates entry with snapshot and cash",
			calls: [][]models.EarningsBreakdown{
				{{Name: "alice park", GrossEarnings: 200, TaxDue: 44, CashPaid: 10}},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				if len(last.Entries) != 1 {
					t.Fatalf("got %d entries, want 1", len(last.Entries))
				}
				e := last.Entries[0]
				mustDecimalEqual(t, "earnings", e.TotalEarnings, "200")
				mustDecimalEqual(t, "tax", e.TaxAmount, "44")
				mustDecimalEqual(t, "paid", e.PaidAmount, "10")
				mustDecimalEqual(t, "remaining", e.RemainingAmount, "34")
				if e.ShiftDate != "2024-03-09" || e.LocationID != "12" {
					t.Errorf("unexpected shift fields: %+v", e)
				}
			},
		},
		{
			name: "zero cash delta is idempotent",
			calls: [][]models.EarningsBreakdown{
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44, CashPaid: 5}},
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44}},
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44}},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				e := last.Entries[0]
				mustDecimalEqual(t, "paid", e.PaidAmount, "5")
				mustDecimalEqual(t, "remaining", e.RemainingAmount, "39")
			},
		},
		{
			name: "cash payments are additive",
			calls: [][]models.EarningsBreakdown{
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44, CashPaid: 10}},
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44, CashPaid: 15}},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				mustDecimalEqual(t, "paid", last.Entries[0].PaidAmount, "25")
				mustDecimalEqual(t, "remaining", last.Entries[0].RemainingAmount, "19")
			},
		},
		{
			name: "resync adds cash without re-snapshotting earnings",
			calls: [][]models.EarningsBreakdown{
				{{Name: "Alice Park", GrossEarnings: 227.27, TaxDue: 50, CashPaid: 20}},
				{{Name: "Alice Park", GrossEarnings: 300, TaxDue: 66, CashPaid: 40}},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				e := last.Entries[0]
				mustDecimalEqual(t, "earnings", e.TotalEarnings, "227.27")
				mustDecimalEqual(t, "tax", e.TaxAmount, "50")
				mustDecimalEqual(t, "paid", e.PaidAmount, "60")
				mustDecimalEqual(t, "remaining", e.RemainingAmount, "0")
			},
		},
		{
			name: "full recompute re-snapshots but keeps paid",
			calls: [][]models.EarningsBreakdown{
				{{Name: "Alice Park", GrossEarnings: 100, TaxDue: 22, CashPaid: 20}},
				{{Name: "Alice Park", GrossEarnings: 200, TaxDue: 44}},
			},
			opts: SyncOptions{FullRecompute: true},
			validateFunc: func(t *testing.T, last *SyncResult) {
				e := last.Entries[0]
				mustDecimalEqual(t, "earnings", e.TotalEarnings, "200")
				mustDecimalEqual(t, "tax", e.TaxAmount, "44")
				mustDecimalEqual(t, "paid", e.PaidAmount, "20")
				mustDecimalEqual(t, "remaining", e.RemainingAmount, "24")
			},
		},
		{
			name: "unresolved employee is skipped with a warning",
			calls: [][]models.EarningsBreakdown{
				{
					{Name: "Alice", GrossEarnings: 100, TaxDue: 22},
					{Name: "Zed Unknown", GrossEarnings: 100, TaxDue: 22},
					{Name: "bob", GrossEarnings: 100, TaxDue: 22, CashPaid: 22},
				},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				if len(last.Entries) != 2 {
					t.Fatalf("got %d entries, want 2", len(last.Entries))
				}
				if len(last.Warnings) != 1 || last.Warnings[0].Employee != "Zed Unknown" {
					t.Errorf("warnings = %+v, want one for Zed Unknown", last.Warnings)
				}
				mustDecimalEqual(t, "bob remaining", last.Entries[1].RemainingAmount, "0")
			},
		},
		{
			name: "duplicate names for one employee are merged",
			calls: [][]models.EarningsBreakdown{
				{
					{Name: "Alice Park", GrossEarnings: 100, TaxDue: 22, CashPaid: 5},
					{Name: "ali", GrossEarnings: 50, TaxDue: 11, CashPaid: 5},
				},
			},
			validateFunc: func(t *testing.T, last *SyncResult) {
				if len(last.Entries) != 1 {
					t.Fatalf("got %d entries, want 1", len(last.Entries))
				}
				e := last.Entries[0]
				mustDecimalEqual(t, "earnings", e.TotalEarnings, "150")
				mustDecimalEqual(t, "tax", e.TaxAmount, "33")
				mustDecimalEqual(t, "paid", e.PaidAmount, "10")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			addEmployee(t, store, 0, "Alice Park", "ali")
			addEmployee(t, store, 0, "Bob Diaz", "")
			shift := addShift(t, store, 0)

			syncer := NewLedgerSynchronizer(store, store, 2)
			var last *SyncResult
			for i, breakdowns := range tt.calls {
				opts := SyncOptions{}
				if i == len(tt.calls)-1 {
					opts = tt.opts
				}
				res, err := syncer.Synchronize(ctx, shift, breakdowns, opts)
				if err != nil {
					t.Fatalf("Synchronize call %d failed: %v", i, err)
				}
				last = res
			}
			tt.validateFunc(t, last)
		})
	}
}

func TestSynchronize_ResyncScenario(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	emp := addEmployee(t, store, 12, "Jonathan Reyes", "jon")
	shift := addShift(t, store, 536)
	syncer := NewLedgerSynchronizer(store, store, 0)

	if _, err := syncer.Synchronize(ctx, shift, []models.EarningsBreakdown{
		{Name: "jon", GrossEarnings: 227.27, TaxDue: 50, CashPaid: 20},
	}, SyncOptions{}); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	res, err := syncer.Synchronize(ctx, shift, []models.EarningsBreakdown{
		{Name: "Jonathan Reyes", GrossEarnings: 227.27, TaxDue: 50, CashPaid: 40},
	}, SyncOptions{})
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}

	e := res.Entries[0]
	if e.EmployeeID != 12 || e.ShiftID != 536 {
		t.Errorf("entry key = (%d, %d), want (12, 536)", e.EmployeeID, e.ShiftID)
	}
	mustDecimalEqual(t, "paid", e.PaidAmount, "60")
	mustDecimalEqual(t, "remaining", e.RemainingAmount, "0")

	entries, err := store.ListLedgerEntriesByShift(ctx, 536)
	if err != nil {
		t.Fatalf("ListLedgerEntriesByShift failed: %v", err)
	}
	if len(entries) != 1 || entries[0].EmployeeID != emp.ID {
		t.Errorf("entries = %+v, want a single entry for employee 12", entries)
	}
}

func TestSynchronize_ConcurrentResyncsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	addEmployee(t, store, 0, "Alice Park", "")
	addEmployee(t, store, 0, "Bob Diaz", "")
	shift := addShift(t, store, 0)
	syncer := NewLedgerSynchronizer(store, store, 4)

	breakdowns := []models.EarningsBreakdown{
		{Name: "Alice Park", GrossEarnings: 500, TaxDue: 110, CashPaid: 2},
		{Name: "Bob Diaz", GrossEarnings: 500, TaxDue: 110, CashPaid: 3},
	}

	const calls = 10
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := syncer.Synchronize(ctx, shift, breakdowns, SyncOptions{})
			if err != nil {
				t.Errorf("Synchronize failed: %v", err)
				return
			}
			if len(res.Warnings) != 0 {
				t.Errorf("unexpected warnings: %+v", res.Warnings)
			}
		}()
	}
	wg.Wait()

	entries, err := store.ListLedgerEntriesByShift(ctx, shift.ID)
	if err != nil {
		t.Fatalf("ListLedgerEntriesByShift failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	mustDecimalEqual(t, "alice paid", entries[0].PaidAmount, "20")
	mustDecimalEqual(t, "bob paid", entries[1].PaidAmount, "30")
}

func TestSynchronize_EmptyBreakdowns(t *testing.T) {
	store := newTestStore(t)
	syncer := NewLedgerSynchronizer(store, store, 1)

	res, err := syncer.Synchronize(context.Background(), models.ShiftTotals{ID: 1}, nil, SyncOptions{})
	if err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
	if len(res.Entries) != 0 || len(res.Warnings) != 0 {
		t.Errorf("got %+v, want empty result", res)
	}
}
