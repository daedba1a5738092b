package postgres

import "context"

// schema mirrors the SQLite layout. Money columns are NUMERIC so ledger
// arithmetic never passes through floating point.
const schema = `
CREATE TABLE IF NOT EXISTS employees (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    handle TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS shift_reports (
    id BIGSERIAL PRIMARY KEY,
    location_id TEXT NOT NULL,
    shift_date DATE NOT NULL,
    shift_label TEXT NOT NULL DEFAULT '',
    total_cars INTEGER NOT NULL DEFAULT 0,
    credit_transactions INTEGER NOT NULL DEFAULT 0,
    total_credit_sales DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_receipts INTEGER NOT NULL DEFAULT 0,
    total_cash DOUBLE PRECISION NOT NULL DEFAULT 0,
    company_cash_turn_in DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_turn_in DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_job_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    tip_model TEXT NOT NULL DEFAULT '',
    employees JSONB NOT NULL DEFAULT '[]',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tax_ledger (
    id UUID PRIMARY KEY,
    employee_id BIGINT NOT NULL REFERENCES employees(id),
    shift_id BIGINT NOT NULL REFERENCES shift_reports(id) ON DELETE CASCADE,
    location_id TEXT NOT NULL,
    shift_date DATE NOT NULL,
    total_earnings NUMERIC(14, 6) NOT NULL,
    tax_amount NUMERIC(14, 2) NOT NULL,
    paid_amount NUMERIC(14, 2) NOT NULL,
    remaining_amount NUMERIC(14, 2) NOT NULL,
    created_at BIGINT NOT NULL,
    last_synced_at BIGINT NOT NULL,
    UNIQUE (employee_id, shift_id)
);

CREATE INDEX IF NOT EXISTS idx_shift_reports_date ON shift_reports(shift_date);
CREATE INDEX IF NOT EXISTS idx_tax_ledger_shift_id ON tax_ledger(shift_id);
CREATE INDEX IF NOT EXISTS idx_tax_ledger_employee_date ON tax_ledger(employee_id, shift_date);
`

func (s *PGStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
