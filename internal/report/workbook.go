// Package report renders reconciliation results as an Excel workbook for
// offline review.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/valetpay/internal/models"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetEarnings    = "Earnings"
	SheetFindings    = "Findings"
	SheetCorrections = "Corrections"
)

// WriteAudit writes the audit summary and the proposed corrections to w as
// an .xlsx workbook.
func WriteAudit(w io.Writer, summary *models.ValidationSummary, corrections []models.LedgerCorrection) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{SheetEarnings, SheetFindings, SheetCorrections} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name  string
		width float64
		rows  [][]any
	}{
		{SheetSummary, 24, summaryRows(summary)},
		{SheetEarnings, 28, earningsRows(summary)},
		{SheetFindings, 90, findingRows(summary)},
		{SheetCorrections, 18, correctionRows(corrections)},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(s.name, 1, 1, header); err != nil {
			return fmt.Errorf("failed to style %s header: %w", s.name, err)
		}
		if err := f.SetColWidth(s.name, "A", "B", s.width); err != nil {
			return fmt.Errorf("failed to size %s columns: %w", s.name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(s *models.ValidationSummary) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Shifts audited", s.ShiftsAudited},
		{"Valid computations", s.ValidCount},
		{"Invalid computations", s.InvalidCount},
		{"Critical errors", len(s.CriticalErrors)},
		{"Ledger drift", len(s.LedgerDrift)},
	}
}

func earningsRows(s *models.ValidationSummary) [][]any {
	names := make([]string, 0, len(s.EarningsByEmployee))
	for name := range s.EarningsByEmployee {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := [][]any{{"Employee", "Gross earnings"}}
	for _, name := range names {
		rows = append(rows, []any{name, roundCents(s.EarningsByEmployee[name])})
	}
	return rows
}

func findingRows(s *models.ValidationSummary) [][]any {
	rows := [][]any{{"Severity", "Finding"}}
	for _, e := range s.CriticalErrors {
		rows = append(rows, []any{"critical", e})
	}
	for _, d := range s.LedgerDrift {
		rows = append(rows, []any{"drift", d})
	}
	return rows
}

func correctionRows(corrections []models.LedgerCorrection) [][]any {
	rows := [][]any{{"Shift", "Employee", "Entry", "Stored earnings", "Recomputed earnings", "Stored tax", "Recomputed tax"}}
	for _, c := range corrections {
		rows = append(rows, []any{
			c.ShiftID, c.EmployeeID, c.EntryID,
			c.StoredEarnings.StringFixed(2), c.RecomputedEarnings.StringFixed(2),
			c.StoredTax.StringFixed(2), c.RecomputedTax.StringFixed(2),
		})
	}
	return rows
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
