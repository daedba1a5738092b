// Package metrics exposes Prometheus collectors for the payroll engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger sync outcomes.
const (
	SyncCreated   = "created"
	SyncUpdated   = "updated"
	SyncUnchanged = "unchanged"
	SyncSkipped   = "skipped"
	SyncFailed    = "failed"
)

// Shift submission results.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionError    = "error"
)

var (
	ShiftSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valetpay",
		Name:      "shift_submissions_total",
		Help:      "Shift reports submitted or edited, by result.",
	}, []string{"result"})

	LedgerSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valetpay",
		Name:      "ledger_syncs_total",
		Help:      "Per-employee tax ledger syncs, by outcome.",
	}, []string{"outcome"})

	ReconciliationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "valetpay",
		Name:      "reconciliation_runs_total",
		Help:      "Completed reconciliation audits.",
	})

	// ReconciliationViolations is the critical error count of the latest audit.
	ReconciliationViolations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "valetpay",
		Name:      "reconciliation_violations",
		Help:      "Critical errors found by the most recent reconciliation audit.",
	})
)
