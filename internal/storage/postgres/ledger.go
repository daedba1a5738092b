package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/storage"
)

const ledgerColumns = `id::text, employee_id, shift_id, location_id, to_char(shift_date, 'YYYY-MM-DD'),
	total_earnings::text, tax_amount::text, paid_amount::text, remaining_amount::text,
	created_at, last_synced_at`

// MutateLedgerEntry locks the entry row with SELECT ... FOR UPDATE, applies fn
// and writes the result in the same transaction. Concurrent writers for the
// same key queue on the row lock.
func (s *PGStore) MutateLedgerEntry(ctx context.Context, key models.LedgerKey, fn storage.LedgerMutation) (*models.TaxLedgerEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	existing, err := scanLedgerEntry(tx.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger WHERE employee_id = $1 AND shift_id = $2 FOR UPDATE`,
		key.EmployeeID, key.ShiftID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock ledger entry: %w", err)
	}

	var current *models.TaxLedgerEntry
	if existing != nil {
		cp := *existing
		current = &cp
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return existing, nil
	}

	next.EmployeeID = key.EmployeeID
	next.ShiftID = key.ShiftID
	next.LastSyncedAt = time.Now().Unix()

	if existing == nil {
		if next.ID == "" {
			next.ID = uuid.New().String()
		}
		if next.CreatedAt == 0 {
			next.CreatedAt = next.LastSyncedAt
		}
		// Two first-time writers can both miss the row. The loser's insert
		// conflicts and the caller retries the whole mutation.
		tag, err := tx.Exec(ctx, `
INSERT INTO tax_ledger (id, employee_id, shift_id, location_id, shift_date, total_earnings,
	tax_amount, paid_amount, remaining_amount, created_at, last_synced_at)
VALUES ($1::uuid, $2, $3, $4, $5::date, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11)
ON CONFLICT (employee_id, shift_id) DO NOTHING`,
			next.ID, next.EmployeeID, next.ShiftID, next.LocationID, next.ShiftDate,
			next.TotalEarnings.String(), next.TaxAmount.String(), next.PaidAmount.String(),
			next.RemainingAmount.String(), next.CreatedAt, next.LastSyncedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Rollback(ctx)
			return s.MutateLedgerEntry(ctx, key, fn)
		}
	} else {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		_, err := tx.Exec(ctx, `
UPDATE tax_ledger SET location_id = $1, shift_date = $2::date, total_earnings = $3::numeric,
	tax_amount = $4::numeric, paid_amount = $5::numeric, remaining_amount = $6::numeric,
	last_synced_at = $7
WHERE id = $8::uuid`,
			next.LocationID, next.ShiftDate, next.TotalEarnings.String(), next.TaxAmount.String(),
			next.PaidAmount.String(), next.RemainingAmount.String(), next.LastSyncedAt, next.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update ledger entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

// GetLedgerEntry retrieves the entry of one (employee, shift) pair.
func (s *PGStore) GetLedgerEntry(ctx context.Context, key models.LedgerKey) (*models.TaxLedgerEntry, error) {
	entry, err := scanLedgerEntry(s.pool.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger WHERE employee_id = $1 AND shift_id = $2`,
		key.EmployeeID, key.ShiftID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry employee=%d shift=%d: %w", key.EmployeeID, key.ShiftID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ListLedgerEntries retrieves all ledger entries.
func (s *PGStore) ListLedgerEntries(ctx context.Context) ([]*models.TaxLedgerEntry, error) {
	return s.listLedger(ctx, `SELECT `+ledgerColumns+` FROM tax_ledger ORDER BY shift_id, employee_id`)
}

// ListLedgerEntriesByShift retrieves the ledger entries of one shift.
func (s *PGStore) ListLedgerEntriesByShift(ctx context.Context, shiftID int64) ([]*models.TaxLedgerEntry, error) {
	return s.listLedger(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger WHERE shift_id = $1 ORDER BY employee_id`, shiftID)
}

// ListLedgerEntriesByEmployee retrieves one employee's entries within a date range.
func (s *PGStore) ListLedgerEntriesByEmployee(ctx context.Context, employeeID int64, from, to string) ([]*models.TaxLedgerEntry, error) {
	if from == "" {
		from = "0001-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	return s.listLedger(ctx, `SELECT `+ledgerColumns+` FROM tax_ledger
WHERE employee_id = $1 AND shift_date BETWEEN $2::date AND $3::date
ORDER BY shift_date, shift_id`, employeeID, from, to)
}

func (s *PGStore) listLedger(ctx context.Context, query string, args ...any) ([]*models.TaxLedgerEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TaxLedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*models.TaxLedgerEntry, error) {
	e := &models.TaxLedgerEntry{}
	var earnings, tax, paid, remaining string
	if err := row.Scan(&e.ID, &e.EmployeeID, &e.ShiftID, &e.LocationID, &e.ShiftDate,
		&earnings, &tax, &paid, &remaining, &e.CreatedAt, &e.LastSyncedAt); err != nil {
		return nil, err
	}

	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&e.TotalEarnings, earnings},
		{&e.TaxAmount, tax},
		{&e.PaidAmount, paid},
		{&e.RemainingAmount, remaining},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("invalid ledger amount %q: %w", f.src, err)
		}
	}
	return e, nil
}
