package parser

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrMalformedEmployeeData means the payload could not be decoded into a
	// sequence of objects within the allowed number of decode attempts.
	ErrMalformedEmployeeData = errors.New("malformed employee data")

	// ErrInvalidEmployeeRecord means a decoded record violates the schema.
	ErrInvalidEmployeeRecord = errors.New("invalid employee record")
)

// MalformedDataError names the field and raw value that could not be decoded.
type MalformedDataError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("%s: field %q: %s (raw=%s)", ErrMalformedEmployeeData, e.Field, e.Reason, truncate(e.Raw, 120))
}

func (e *MalformedDataError) Unwrap() error { return ErrMalformedEmployeeData }

// RecordError names the offending record and field.
type RecordError struct {
	Index  int
	Field  string
	Value  any
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: record %d: field %q %s (got %v)", ErrInvalidEmployeeRecord, e.Index, e.Field, e.Reason, e.Value)
}

func (e *RecordError) Unwrap() error { return ErrInvalidEmployeeRecord }

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
