// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/valetpay/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// LedgerMutation computes the new state of a ledger entry from its current
// state. existing is nil when the pair has never been synced. Returning a nil
// entry and nil error leaves the ledger untouched.
type LedgerMutation func(existing *models.TaxLedgerEntry) (*models.TaxLedgerEntry, error)

// LedgerStore persists tax ledger entries.
type LedgerStore interface {
	// MutateLedgerEntry reads the entry for key, applies fn and writes the
	// result back as one atomic unit. Concurrent calls for the same key are
	// serialized so that no update is lost.
	MutateLedgerEntry(ctx context.Context, key models.LedgerKey, fn LedgerMutation) (*models.TaxLedgerEntry, error)

	// GetLedgerEntry returns the entry for key or an ErrNotFound error.
	GetLedgerEntry(ctx context.Context, key models.LedgerKey) (*models.TaxLedgerEntry, error)

	// ListLedgerEntries returns every entry ordered by shift then employee.
	ListLedgerEntries(ctx context.Context) ([]*models.TaxLedgerEntry, error)

	// ListLedgerEntriesByShift returns the entries of one shift.
	ListLedgerEntriesByShift(ctx context.Context, shiftID int64) ([]*models.TaxLedgerEntry, error)

	// ListLedgerEntriesByEmployee returns one employee's entries with shift
	// dates in [from, to] ("2006-01-02"); empty bounds are open.
	ListLedgerEntriesByEmployee(ctx context.Context, employeeID int64, from, to string) ([]*models.TaxLedgerEntry, error)
}

// ShiftStore persists shift reports.
type ShiftStore interface {
	// CreateShiftReport stores a new report. A zero ID is assigned by the store.
	CreateShiftReport(ctx context.Context, report *models.ShiftReport) error

	// UpdateShiftReport replaces an existing report.
	UpdateShiftReport(ctx context.Context, report *models.ShiftReport) error

	// GetShiftReport returns one report or an ErrNotFound error.
	GetShiftReport(ctx context.Context, id int64) (*models.ShiftReport, error)

	// ListShiftReports returns all reports ordered by ID.
	ListShiftReports(ctx context.Context) ([]*models.ShiftReport, error)
}

// EmployeeDirectory is the employee registry.
type EmployeeDirectory interface {
	// ListEmployees returns the registry in ID order.
	ListEmployees(ctx context.Context) ([]models.Employee, error)

	// CreateEmployee registers an employee. A zero ID is assigned by the store.
	CreateEmployee(ctx context.Context, employee *models.Employee) error
}

// Store defines the full persistence surface of the payroll engine.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	LedgerStore
	ShiftStore
	EmployeeDirectory

	// Close releases any resources held by the store.
	Close() error
}
