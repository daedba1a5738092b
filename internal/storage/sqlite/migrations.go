package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Employees and shift reports must be created before the ledger due to foreign keys.
const schema = `
CREATE TABLE IF NOT EXISTS employees (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    handle TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shift_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id TEXT NOT NULL,
    shift_date TEXT NOT NULL,
    shift_label TEXT NOT NULL DEFAULT '',
    total_cars INTEGER NOT NULL DEFAULT 0,
    credit_transactions INTEGER NOT NULL DEFAULT 0,
    total_credit_sales REAL NOT NULL DEFAULT 0,
    total_receipts INTEGER NOT NULL DEFAULT 0,
    total_cash REAL NOT NULL DEFAULT 0,
    company_cash_turn_in REAL NOT NULL DEFAULT 0,
    total_turn_in REAL NOT NULL DEFAULT 0,
    total_job_hours REAL NOT NULL DEFAULT 0,
    tip_model TEXT NOT NULL DEFAULT '',
    employees TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tax_ledger (
    id TEXT PRIMARY KEY,
    employee_id INTEGER NOT NULL,
    shift_id INTEGER NOT NULL,
    location_id TEXT NOT NULL,
    shift_date TEXT NOT NULL,
    total_earnings TEXT NOT NULL,
    tax_amount TEXT NOT NULL,
    paid_amount TEXT NOT NULL,
    remaining_amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    last_synced_at INTEGER NOT NULL,
    UNIQUE (employee_id, shift_id),
    FOREIGN KEY (employee_id) REFERENCES employees(id),
    FOREIGN KEY (shift_id) REFERENCES shift_reports(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_shift_reports_date ON shift_reports(shift_date);
CREATE INDEX IF NOT EXISTS idx_tax_ledger_shift_id ON tax_ledger(shift_id);
CREATE INDEX IF NOT EXISTS idx_tax_ledger_employee_date ON tax_ledger(employee_id, shift_date);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
