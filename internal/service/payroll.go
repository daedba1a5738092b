package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/valetpay/internal/calculator"
	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/parser"
	"github.com/mmynk/valetpay/internal/rates"
)

const dateLayout = "2006-01-02"

// RejectionError is returned when a shift submission is refused because of
// its own data. Field names the offending input.
type RejectionError struct {
	Field string
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("shift rejected: %s: %v", e.Field, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// payroll resolves rates and tax for a shift and runs the calculator.
type payroll struct {
	rates *rates.Table
	tax   *rates.TaxSchedule
}

func newPayroll(cfg *rates.Config) payroll {
	if cfg == nil {
		cfg = rates.Defaults()
	}
	return payroll{rates: cfg.Table, tax: cfg.Tax}
}

func (p payroll) rateFor(shift models.ShiftTotals) (models.RateTableEntry, float64) {
	rate, found := p.rates.Lookup(shift.LocationID)
	if !found {
		slog.Debug("No rates configured for location, using default", "location_id", shift.LocationID)
	}
	return rate, p.tax.RateAt(shift.Date)
}

func (p payroll) breakdowns(shift models.ShiftTotals, employees []models.EmployeeHoursRecord) ([]models.EarningsBreakdown, error) {
	rate, taxRate := p.rateFor(shift)
	return calculator.Calculate(shift, rate, taxRate, employees)
}

// reject classifies parser and calculator failures as field-level rejections.
// Other errors pass through unchanged.
func reject(err error) error {
	var recErr *parser.RecordError
	switch {
	case errors.As(err, &recErr):
		return &RejectionError{Field: fmt.Sprintf("%s[%d].%s", parser.Field, recErr.Index, recErr.Field), Err: err}
	case errors.Is(err, parser.ErrMalformedEmployeeData):
		return &RejectionError{Field: parser.Field, Err: err}
	case errors.Is(err, calculator.ErrHoursExceedTotal):
		return &RejectionError{Field: "totalJobHours", Err: err}
	case errors.Is(err, calculator.ErrNegativeEarnings):
		return &RejectionError{Field: "earnings", Err: err}
	case errors.Is(err, calculator.ErrInvalidShift):
		return &RejectionError{Field: "shift", Err: err}
	}
	return err
}
