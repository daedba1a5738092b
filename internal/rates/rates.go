// Package rates holds the per-location rate table and the time-bound tax schedule.
// Both are configuration: they are loaded from YAML or built in code, never
// hard-coded at the point of use.
package rates

import (
	"time"

	"github.com/mmynk/valetpay/internal/models"
)

// DefaultEntry applies to any location missing from the table.
var DefaultEntry = models.RateTableEntry{
	CommissionPerCar: 4,
	PerCarPrice:      7,
	TipRate:          7,
	ReceiptTip:       1,
	ReceiptSalePrice: 20,
}

// DefaultTaxRate is the historical flat withholding rate.
const DefaultTaxRate = 0.22

// Table maps location identifiers to their rate entries.
type Table struct {
	Default   models.RateTableEntry
	Locations map[string]models.RateTableEntry
}

// NewTable returns a table with the documented default and the given locations.
func NewTable(locations map[string]models.RateTableEntry) *Table {
	if locations == nil {
		locations = make(map[string]models.RateTableEntry)
	}
	return &Table{Default: DefaultEntry, Locations: locations}
}

// Lookup returns the entry for a location. Unknown locations get the table
// default; found reports whether the location was configured.
func (t *Table) Lookup(locationID string) (entry models.RateTableEntry, found bool) {
	if e, ok := t.Locations[locationID]; ok {
		return e, true
	}
	return t.Default, false
}

// TaxRule applies Rate to shifts dated in [From, Until). A zero Until is open-ended.
type TaxRule struct {
	From  time.Time
	Until time.Time
	Rate  float64
}

func (r TaxRule) contains(t time.Time) bool {
	if t.Before(r.From) {
		return false
	}
	return r.Until.IsZero() || t.Before(r.Until)
}

// TaxSchedule decides which tax rate applies to a shift date.
type TaxSchedule struct {
	Rules []TaxRule
}

// DefaultTaxSchedule is a single open-ended rule at DefaultTaxRate.
func DefaultTaxSchedule() *TaxSchedule {
	return &TaxSchedule{Rules: []TaxRule{{Rate: DefaultTaxRate}}}
}

// RateAt returns the rate of the latest-starting rule covering t.
// When no rule covers t the tax does not apply and RateAt returns 0.
func (s *TaxSchedule) RateAt(t time.Time) float64 {
	var (
		best  TaxRule
		found bool
	)
	for _, r := range s.Rules {
		if !r.contains(t) {
			continue
		}
		if !found || r.From.After(best.From) {
			best, found = r, true
		}
	}
	if !found {
		return 0
	}
	return best.Rate
}
