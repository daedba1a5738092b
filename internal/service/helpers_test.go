package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/storage/sqlite"
)

// newTestStore creates a SQLite store in a temp file.
func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return store
}

func addEmployee(t *testing.T, store *sqlite.SQLiteStore, id int64, name, key string) models.Employee {
	t.Helper()
	e := &models.Employee{ID: id, Name: name, Key: key}
	if err := store.CreateEmployee(context.Background(), e); err != nil {
		t.Fatalf("CreateEmployee(%s) failed: %v", name, err)
	}
	return *e
}

func addShift(t *testing.T, store *sqlite.SQLiteStore, id int64) models.ShiftTotals {
	t.Helper()
	report := &models.ShiftReport{ShiftTotals: models.ShiftTotals{
		ID:         id,
		LocationID: "12",
		Date:       time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Shift:      "PM",
	}}
	if err := store.CreateShiftReport(context.Background(), report); err != nil {
		t.Fatalf("CreateShiftReport failed: %v", err)
	}
	return report.ShiftTotals
}

func mustDecimalEqual(t *testing.T, label string, got interface{ String() string }, want string) {
	t.Helper()
	if got.String() != want {
		t.Errorf("%s = %s, want %s", label, got.String(), want)
	}
}
