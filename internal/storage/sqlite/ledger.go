package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/storage"
)

const ledgerColumns = `id, employee_id, shift_id, location_id, shift_date, total_earnings,
	tax_amount, paid_amount, remaining_amount, created_at, last_synced_at`

// MutateLedgerEntry runs a read-modify-write cycle on one ledger entry inside
// a single immediate transaction.
func (s *SQLiteStore) MutateLedgerEntry(ctx context.Context, key models.LedgerKey, fn storage.LedgerMutation) (*models.TaxLedgerEntry, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getLedgerEntry(ctx, tx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read ledger entry: %w", err)
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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tax_ledger (`+ledgerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			next.ID, next.EmployeeID, next.ShiftID, next.LocationID, next.ShiftDate,
			next.TotalEarnings, next.TaxAmount, next.PaidAmount, next.RemainingAmount,
			next.CreatedAt, next.LastSyncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	} else {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		_, err = tx.ExecContext(ctx,
			`UPDATE tax_ledger SET location_id = ?, shift_date = ?, total_earnings = ?, tax_amount = ?,
				paid_amount = ?, remaining_amount = ?, last_synced_at = ?
			 WHERE id = ?`,
			next.LocationID, next.ShiftDate, next.TotalEarnings, next.TaxAmount,
			next.PaidAmount, next.RemainingAmount, next.LastSyncedAt, next.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return next, nil
}

// GetLedgerEntry retrieves the entry of one (employee, shift) pair.
func (s *SQLiteStore) GetLedgerEntry(ctx context.Context, key models.LedgerKey) (*models.TaxLedgerEntry, error) {
	entry, err := getLedgerEntry(ctx, s.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry employee=%d shift=%d: %w", key.EmployeeID, key.ShiftID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ListLedgerEntries retrieves all ledger entries.
func (s *SQLiteStore) ListLedgerEntries(ctx context.Context) ([]*models.TaxLedgerEntry, error) {
	return s.listLedger(ctx, `SELECT `+ledgerColumns+` FROM tax_ledger ORDER BY shift_id, employee_id`)
}

// ListLedgerEntriesByShift retrieves the ledger entries of one shift.
func (s *SQLiteStore) ListLedgerEntriesByShift(ctx context.Context, shiftID int64) ([]*models.TaxLedgerEntry, error) {
	return s.listLedger(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger WHERE shift_id = ? ORDER BY employee_id`, shiftID)
}

// ListLedgerEntriesByEmployee retrieves one employee's entries within a date range.
func (s *SQLiteStore) ListLedgerEntriesByEmployee(ctx context.Context, employeeID int64, from, to string) ([]*models.TaxLedgerEntry, error) {
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	return s.listLedger(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger
		 WHERE employee_id = ? AND shift_date BETWEEN ? AND ?
		 ORDER BY shift_date, shift_id`,
		employeeID, from, to)
}

func (s *SQLiteStore) listLedger(ctx context.Context, query string, args ...any) ([]*models.TaxLedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func getLedgerEntry(ctx context.Context, q querier, key models.LedgerKey) (*models.TaxLedgerEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM tax_ledger WHERE employee_id = ? AND shift_id = ?`,
		key.EmployeeID, key.ShiftID)
	return scanLedgerEntry(row)
}

func scanLedgerEntry(row scanner) (*models.TaxLedgerEntry, error) {
	e := &models.TaxLedgerEntry{}
	if err := row.Scan(&e.ID, &e.EmployeeID, &e.ShiftID, &e.LocationID, &e.ShiftDate,
		&e.TotalEarnings, &e.TaxAmount, &e.PaidAmount, &e.RemainingAmount,
		&e.CreatedAt, &e.LastSyncedAt); err != nil {
		return nil, err
	}
	return e, nil
}
