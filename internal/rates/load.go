package rates

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/valetpay/internal/models"
)

const dateLayout = "2006-01-02"

// Entries stay as nodes so that omitted fields can be filled from the
// built-in default (for default) or the file's default (for locations).
type ratesFile struct {
	Version   int                  `yaml:"version"`
	Default   yaml.Node            `yaml:"default"`
	Locations map[string]yaml.Node `yaml:"locations"`
	Tax       []taxRuleYAML        `yaml:"tax"`
}

type taxRuleYAML struct {
	From  string  `yaml:"from"`
	Until string  `yaml:"until"`
	Rate  float64 `yaml:"rate"`
}

// Config is the parsed rates file.
type Config struct {
	Table *Table
	Tax   *TaxSchedule
}

// Defaults returns the built-in configuration used when no file is given.
func Defaults() *Config {
	return &Config{Table: NewTable(nil), Tax: DefaultTaxSchedule()}
}

// Load reads and parses a rates file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rates file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a version 1 rates document.
func Parse(b []byte) (*Config, error) {
	var f ratesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rates: %w", err)
	}
	if f.Version != 1 {
		return nil, errors.New("rates: unsupported version")
	}

	table := NewTable(nil)
	if err := decodeEntry(&f.Default, &table.Default); err != nil {
		return nil, fmt.Errorf("rates: default: %w", err)
	}
	if err := validateEntry("default", table.Default); err != nil {
		return nil, err
	}
	for id, node := range f.Locations {
		e := table.Default
		if err := decodeEntry(&node, &e); err != nil {
			return nil, fmt.Errorf("rates: location %q: %w", id, err)
		}
		if err := validateEntry(id, e); err != nil {
			return nil, err
		}
		table.Locations[id] = e
	}

	schedule := DefaultTaxSchedule()
	if len(f.Tax) > 0 {
		schedule = &TaxSchedule{}
		for i, r := range f.Tax {
			rule, err := r.toRule()
			if err != nil {
				return nil, fmt.Errorf("rates: tax rule %d: %w", i, err)
			}
			schedule.Rules = append(schedule.Rules, rule)
		}
	}

	return &Config{Table: table, Tax: schedule}, nil
}

func (r taxRuleYAML) toRule() (TaxRule, error) {
	if r.Rate < 0 || r.Rate > 1 {
		return TaxRule{}, fmt.Errorf("rate %v out of range [0,1]", r.Rate)
	}
	rule := TaxRule{Rate: r.Rate}
	if r.From != "" {
		t, err := time.Parse(dateLayout, r.From)
		if err != nil {
			return TaxRule{}, fmt.Errorf("from invalid: %w", err)
		}
		rule.From = t
	}
	if r.Until != "" {
		t, err := time.Parse(dateLayout, r.Until)
		if err != nil {
			return TaxRule{}, fmt.Errorf("until invalid: %w", err)
		}
		if !t.After(rule.From) {
			return TaxRule{}, errors.New("until must be after from")
		}
		rule.Until = t
	}
	return rule, nil
}

// decodeEntry overlays the fields present in node onto e.
func decodeEntry(node *yaml.Node, e *models.RateTableEntry) error {
	if node.Kind == 0 || node.ShortTag() == "!!null" {
		return nil
	}
	return node.Decode(e)
}

func validateEntry(id string, e models.RateTableEntry) error {
	if e.CommissionPerCar < 0 || e.PerCarPrice < 0 || e.TipRate < 0 || e.ReceiptTip < 0 || e.ReceiptSalePrice < 0 {
		return fmt.Errorf("rates: location %q has a negative rate", id)
	}
	return nil
}
