package models

// ValidationSummary is the output of a reconciliation run.
type ValidationSummary struct {
	// ShiftsAudited is the number of shift reports inspected.
	ShiftsAudited int `json:"shiftsAudited"`

	// ValidCount and InvalidCount count per-employee computations. A shift
	// whose payload does not parse counts as one invalid computation.
	ValidCount   int `json:"validCount"`
	InvalidCount int `json:"invalidCount"`

	// EarningsByEmployee is cumulative gross earnings across the corpus,
	// keyed by resolved employee name (or the raw name when unresolved).
	EarningsByEmployee map[string]float64 `json:"earningsByEmployee"`

	// CriticalErrors name the offending shift and the violated invariant.
	CriticalErrors []string `json:"criticalErrors"`

	// LedgerDrift lists ledger entries whose earnings snapshot differs from
	// a fresh computation. Drift is expected after rate changes and is not
	// counted as invalid.
	LedgerDrift []string `json:"ledgerDrift"`
}
