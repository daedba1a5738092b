// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface for multi-instance deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/storage"
)

var _ storage.Store = (*PGStore)(nil)

const dateLayout = "2006-01-02"

// PGStore implements storage.Store on a pgx connection pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes every pooled connection.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

const shiftColumns = `id, location_id, to_char(shift_date, 'YYYY-MM-DD'), shift_label, total_cars,
	credit_transactions, total_credit_sales, total_receipts, total_cash, company_cash_turn_in,
	total_turn_in, total_job_hours, tip_model, employees::text, created_at, updated_at`

// CreateShiftReport persists a new shift report.
func (s *PGStore) CreateShiftReport(ctx context.Context, report *models.ShiftReport) error {
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

	args := []any{
		report.LocationID, report.Date.Format(dateLayout), report.Shift, report.TotalCars,
		report.CreditTransactions, report.TotalCreditSales, report.TotalReceipts, report.TotalCash,
		report.CompanyCashTurnIn, report.TotalTurnIn, report.TotalJobHours, string(report.TipModel),
		report.Employees, report.CreatedAt, report.UpdatedAt,
	}

	if report.ID != 0 {
		_, err := s.pool.Exec(ctx, `
INSERT INTO shift_reports (location_id, shift_date, shift_label, total_cars, credit_transactions,
	total_credit_sales, total_receipts, total_cash, company_cash_turn_in, total_turn_in,
	total_job_hours, tip_model, employees, created_at, updated_at, id)
VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $16)`,
			append(args, report.ID)...)
		if err != nil {
			return fmt.Errorf("failed to insert shift report: %w", err)
		}
		return nil
	}

	err := s.pool.QueryRow(ctx, `
INSERT INTO shift_reports (location_id, shift_date, shift_label, total_cars, credit_transactions,
	total_credit_sales, total_receipts, total_cash, company_cash_turn_in, total_turn_in,
	total_job_hours, tip_model, employees, created_at, updated_at)
VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15)
RETURNING id`, args...).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to insert shift report: %w", err)
	}
	return nil
}

// UpdateShiftReport replaces the totals and employee payload of a stored report.
func (s *PGStore) UpdateShiftReport(ctx context.Context, report *models.ShiftReport) error {
	report.UpdatedAt = time.Now().Unix()
	if report.Employees == "" {
		report.Employees = "[]"
	}

	err := s.pool.QueryRow(ctx, `
UPDATE shift_reports SET
	location_id = $1, shift_date = $2::date, shift_label = $3, total_cars = $4,
	credit_transactions = $5, total_credit_sales = $6, total_receipts = $7, total_cash = $8,
	company_cash_turn_in = $9, total_turn_in = $10, total_job_hours = $11, tip_model = $12,
	employees = $13::jsonb, updated_at = $14
WHERE id = $15
RETURNING created_at`,
		report.LocationID, report.Date.Format(dateLayout), report.Shift, report.TotalCars,
		report.CreditTransactions, report.TotalCreditSales, report.TotalReceipts, report.TotalCash,
		report.CompanyCashTurnIn, report.TotalTurnIn, report.TotalJobHours, string(report.TipModel),
		report.Employees, report.UpdatedAt, report.ID,
	).Scan(&report.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("shift report %d: %w", report.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update shift report: %w", err)
	}
	return nil
}

// GetShiftReport retrieves a shift report by ID.
func (s *PGStore) GetShiftReport(ctx context.Context, id int64) (*models.ShiftReport, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shift_reports WHERE id = $1`, id)
	report, err := scanShiftReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift report %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift report: %w", err)
	}
	return report, nil
}

// ListShiftReports retrieves every shift report ordered by ID.
func (s *PGStore) ListShiftReports(ctx context.Context) ([]*models.ShiftReport, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shift_reports ORDER BY id`)
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

func scanShiftReport(row pgx.Row) (*models.ShiftReport, error) {
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

// CreateEmployee inserts a new employee into the registry.
func (s *PGStore) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.CreatedAt == 0 {
		employee.CreatedAt = time.Now().Unix()
	}

	if employee.ID != 0 {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO employees (id, name, handle, created_at) VALUES ($1, $2, $3, $4)`,
			employee.ID, employee.Name, employee.Key, employee.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		return nil
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO employees (name, handle, created_at) VALUES ($1, $2, $3) RETURNING id`,
		employee.Name, employee.Key, employee.CreatedAt).Scan(&employee.ID)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// ListEmployees retrieves the whole registry ordered by ID.
func (s *PGStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, handle, created_at FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Key, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}
