// Package registry resolves the loosely-typed employee names found in shift
// reports to canonical registry employees.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/valetpay/internal/models"
)

// ErrEmployeeNotFound means no registry employee matched a name.
var ErrEmployeeNotFound = errors.New("employee not found in registry")

// MatchKind reports which rule resolved a name.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchFirstLast MatchKind = "first_last"
	MatchSubstring MatchKind = "substring"
)

// Resolve finds the registry employee a report name refers to.
// Rules are tried in priority order and the first employee matching a rule wins:
//  1. case-insensitive exact match on name or key
//  2. first and last name match (middle names ignored)
//  3. substring containment in either direction
func Resolve(name string, employees []models.Employee) (models.Employee, MatchKind, error) {
	query := normalize(name)
	if query == "" {
		return models.Employee{}, "", fmt.Errorf("%w: empty name", ErrEmployeeNotFound)
	}

	for _, e := range employees {
		if normalize(e.Name) == query || (e.Key != "" && normalize(e.Key) == query) {
			return e, MatchExact, nil
		}
	}

	if first, last, ok := firstLast(query); ok {
		for _, e := range employees {
			if f, l, ok := firstLast(normalize(e.Name)); ok && f == first && l == last {
				return e, MatchFirstLast, nil
			}
		}
	}

	for _, e := range employees {
		candidate := normalize(e.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
			return e, MatchSubstring, nil
		}
	}

	return models.Employee{}, "", fmt.Errorf("%w: %q", ErrEmployeeNotFound, name)
}

// normalize lower-cases and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func firstLast(s string) (string, string, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[len(fields)-1], true
}
