// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

const dateLayout = "2006-01-02"

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	// ledgerMu serializes ledger read-modify-write cycles within the process.
	// Immediate transactions serialize them across processes.
	ledgerMu sync.Mutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Immediate transactions take the write lock up front, so two ledger
	// syncs never both read before either writes.
	dsn := dbPath + "?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const shiftColumns = `id, location_id, shift_date, shift_label, total_cars, credit_transactions,
	total_credit_sales, total_receipts, total_cash, company_cash_turn_in, total_turn_in,
	total_job_hours, tip_model, employees, created_at, updated_at`

// CreateShiftReport persists a new shift report.
func (s *SQLiteStore) CreateShiftReport(ctx context.Context, report *models.ShiftReport) error {
	now := time.Now().Unix()
	if report.CreatedAt == 0 {
		report.CreatedAt = now
	}
	if report.UpdatedAt == 0 {
		report.UpdatedAt = report.CreatedAt
	}
	if report.Employees == "" {
		report.Employees = "[]"
	}

	var id any
	if report.ID != 0 {
		id = report.ID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_reports (`+shiftColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, report.LocationID, report.Date.Format(dateLayout), report.Shift, report.TotalCars,
		report.CreditTransactions, report.TotalCreditSales, report.TotalReceipts, report.TotalCash,
		report.CompanyCashTurnIn, report.TotalTurnIn, report.TotalJobHours, string(report.TipModel),
		report.Employees, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shift report: %w", err)
	}

	if report.ID == 0 {
		newID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read shift report id: %w", err)
		}
		report.ID = newID
	}

	return nil
}

// UpdateShiftReport replaces the totals and employee payload of a stored report.
func (s *SQLiteStore) UpdateShiftReport(ctx context.Context, report *models.ShiftReport) error {
	report.UpdatedAt = time.Now().Unix()
	if report.Employees == "" {
		report.Employees = "[]"
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE shift_reports SET
			location_id = ?, shift_date = ?, shift_label = ?, total_cars = ?, credit_transactions = ?,
			total_credit_sales = ?, total_receipts = ?, total_cash = ?, company_cash_turn_in = ?,
			total_turn_in = ?, total_job_hours = ?, tip_model = ?, employees = ?, updated_at = ?
		 WHERE id = ?`,
		report.LocationID, report.Date.Format(dateLayout), report.Shift, report.TotalCars,
		report.CreditTransactions, report.TotalCreditSales, report.TotalReceipts, report.TotalCash,
		report.CompanyCashTurnIn, report.TotalTurnIn, report.TotalJobHours, string(report.TipModel),
		report.Employees, report.UpdatedAt, report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift report: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shift report %d: %w", report.ID, storage.ErrNotFound)
	}

	return s.db.QueryRowContext(ctx, "SELECT created_at FROM shift_reports WHERE id = ?", report.ID).Scan(&report.CreatedAt)
}

// GetShiftReport retrieves a shift report by ID.
func (s *SQLiteStore) GetShiftReport(ctx context.Context, id int64) (*models.ShiftReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shift_reports WHERE id = ?`, id)
	report, err := scanShiftReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shift report %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift report: %w", err)
	}
	return report, nil
}

// ListShiftReports retrieves every shift report ordered by ID.
func (s *SQLiteStore) ListShiftReports(ctx context.Context) ([]*models.ShiftReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shift_reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.ShiftReport
	for rows.Next() {
		report, err := scanShiftReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shift reports: %w", err)
	}

	return reports, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShiftReport(row scanner) (*models.ShiftReport, error) {
	report := &models.ShiftReport{}
	var date, tipModel string
	err := row.Scan(&report.ID, &report.LocationID, &date, &report.Shift, &report.TotalCars,
		&report.CreditTransactions, &report.TotalCreditSales, &report.TotalReceipts, &report.TotalCash,
		&report.CompanyCashTurnIn, &report.TotalTurnIn, &report.TotalJobHours, &tipModel,
		&report.Employees, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, err
	}

	report.TipModel = models.TipModel(tipModel)
	report.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid shift date %q: %w", date, err)
	}
	return report, nil
}
