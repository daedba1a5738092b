// Package models defines the core domain records for the valet payroll engine.
//
// # Records
//
// The engine consumes and produces plain records; how they are stored is up to
// the storage package.
//   - ShiftTotals: aggregate financial totals of one shift report
//   - ShiftReport: a persisted shift report with its embedded employee payload
//   - EmployeeHoursRecord: one entry of the embedded employee-hours list
//   - RateTableEntry: per-location commission, price and tip rates
//   - EarningsBreakdown: derived per-employee earnings (never persisted)
//   - TaxLedgerEntry: the durable tax owed/paid record per (employee, shift)
//   - Employee: a registry entry the embedded names are resolved against
//   - ValidationSummary: the output of a reconciliation run
//
// # Identity
//
// Employee names inside a shift report are not identities. They are loose
// join keys into the employee registry and must be resolved (see the registry
// package) before anything is written to the ledger.
//
// # Money
//
// Earnings are computed in float64 and compared with a small epsilon. Ledger
// amounts are decimal.Decimal so that repeated additive payments never drift.
package models
