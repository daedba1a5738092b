// Package parser recovers a typed employee-hours list from the loosely-typed
// payload embedded in shift reports.
//
// Upstream data entry tools have produced the list as a JSON array, as a string
// holding a JSON array, and as a string holding such a string. Parse unwraps up
// to MaxDecodeDepth levels of string encoding and then validates every record.
// Invalid records are never dropped: the whole payload fails and the caller
// decides what to do with the shift.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmynk/valetpay/internal/models"
)

// MaxDecodeDepth is the number of JSON decode attempts made on string payloads.
const MaxDecodeDepth = 3

// MaxHoursPerShift bounds a single employee's hours.
const MaxHoursPerShift = 24

// Field is the name reported in errors about the payload as a whole.
const Field = "employees"

var (
	nameKeys  = []string{"name", "employee", "employeeName"}
	hoursKeys = []string{"hoursWorked", "hours"}
	cashKeys  = []string{"cashPaid", "cash_paid"}
)

// Parse canonicalizes an employee-hours payload.
// Accepted shapes: []models.EmployeeHoursRecord, []map[string]any, []any,
// string, []byte and json.RawMessage. A nil or blank payload yields an empty list.
func Parse(raw any) ([]models.EmployeeHoursRecord, error) {
	switch v := raw.(type) {
	case nil:
		return []models.EmployeeHoursRecord{}, nil
	case []models.EmployeeHoursRecord:
		out := make([]models.EmployeeHoursRecord, len(v))
		for i, r := range v {
			rec, err := validate(i, r)
			if err != nil {
				return nil, err
			}
			out[i] = rec
		}
		return out, nil
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return fromItems(items)
	case []any:
		return fromItems(v)
	case json.RawMessage:
		return parseString(string(v))
	case []byte:
		return parseString(string(v))
	case string:
		return parseString(v)
	default:
		return nil, &MalformedDataError{Field: Field, Raw: fmt.Sprintf("%v", raw), Reason: fmt.Sprintf("unsupported payload type %T", raw)}
	}
}

func parseString(s string) ([]models.EmployeeHoursRecord, error) {
	raw := s
	current := strings.TrimSpace(s)
	if current == "" || current == "null" {
		return []models.EmployeeHoursRecord{}, nil
	}

	for attempt := 1; attempt <= MaxDecodeDepth; attempt++ {
		var decoded any
		dec := json.NewDecoder(strings.NewReader(current))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, &MalformedDataError{Field: Field, Raw: raw, Reason: fmt.Sprintf("decode attempt %d: %v", attempt, err)}
		}
		if dec.More() {
			return nil, &MalformedDataError{Field: Field, Raw: raw, Reason: "trailing data after JSON value"}
		}

		switch v := decoded.(type) {
		case []any:
			return fromItems(v)
		case nil:
			return []models.EmployeeHoursRecord{}, nil
		case string:
			current = strings.TrimSpace(v)
			continue
		default:
			return nil, &MalformedDataError{Field: Field, Raw: raw, Reason: fmt.Sprintf("decoded to %T, want a list", decoded)}
		}
	}

	return nil, &MalformedDataError{Field: Field, Raw: raw, Reason: fmt.Sprintf("still a string after %d decode attempts", MaxDecodeDepth)}
}

func fromItems(items []any) ([]models.EmployeeHoursRecord, error) {
	out := make([]models.EmployeeHoursRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			b, _ := json.Marshal(item)
			return nil, &MalformedDataError{Field: fmt.Sprintf("%s[%d]", Field, i), Raw: string(b), Reason: "element is not an object"}
		}
		rec, err := fromObject(i, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func fromObject(i int, obj map[string]any) (models.EmployeeHoursRecord, error) {
	var rec models.EmployeeHoursRecord

	nameVal, _ := lookup(obj, nameKeys)
	name, ok := nameVal.(string)
	if !ok {
		return rec, &RecordError{Index: i, Field: "name", Value: nameVal, Reason: "must be a non-empty string"}
	}
	rec.Name = name

	if v, ok := lookup(obj, hoursKeys); ok && v != nil {
		hours, ok := toFloat(v)
		if !ok {
			return rec, &RecordError{Index: i, Field: "hoursWorked", Value: v, Reason: "must be numeric"}
		}
		rec.HoursWorked = hours
	}

	if v, ok := lookup(obj, cashKeys); ok && v != nil {
		cash, ok := toFloat(v)
		if !ok {
			return rec, &RecordError{Index: i, Field: "cashPaid", Value: v, Reason: "must be numeric"}
		}
		rec.CashPaid = cash
	}

	return validate(i, rec)
}

func validate(i int, rec models.EmployeeHoursRecord) (models.EmployeeHoursRecord, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return rec, &RecordError{Index: i, Field: "name", Value: rec.Name, Reason: "must be a non-empty string"}
	}
	if math.IsNaN(rec.HoursWorked) || rec.HoursWorked < 0 || rec.HoursWorked > MaxHoursPerShift {
		return rec, &RecordError{Index: i, Field: "hoursWorked", Value: rec.HoursWorked, Reason: "must be within [0, 24]"}
	}
	if math.IsNaN(rec.CashPaid) || math.IsInf(rec.CashPaid, 0) || rec.CashPaid < 0 {
		return rec, &RecordError{Index: i, Field: "cashPaid", Value: rec.CashPaid, Reason: "must be >= 0"}
	}
	return rec, nil
}

func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Encode returns the canonical single-encoded JSON form of a record list.
func Encode(records []models.EmployeeHoursRecord) (string, error) {
	if records == nil {
		records = []models.EmployeeHoursRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("failed to encode employees: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
