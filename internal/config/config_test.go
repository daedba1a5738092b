package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/valetpay/internal/rates"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DB_DRIVER", "DB_PATH", "DATABASE_URL", "HTTP_ADDR", "RATES_PATH", "SYNC_CONCURRENCY"} {
		t.Setenv(k, "")
	}
	// godotenv.Load reads .env from the working directory; keep tests hermetic.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBDriver != DriverSQLite || cfg.DBPath != "./data/payroll.db" || cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SyncConcurrency != 4 {
		t.Errorf("SyncConcurrency = %d, want 4", cfg.SyncConcurrency)
	}
	if cfg.Rates.Table.Default != rates.DefaultEntry {
		t.Errorf("default rates = %+v", cfg.Rates.Table.Default)
	}
}

func TestLoadRatesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "rates.yaml")
	doc := "version: 1\nlocations:\n  \"12\": {commission_per_car: 5}\ntax:\n  - {from: 2020-01-01, rate: 0.2}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("RATES_PATH", path)
	t.Setenv("SYNC_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if e, ok := cfg.Rates.Table.Lookup("12"); !ok || e.CommissionPerCar != 5 {
		t.Errorf("location 12 = %+v (found=%v)", e, ok)
	}
	if got := cfg.Rates.Tax.RateAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); got != 0.2 {
		t.Errorf("tax rate = %v, want 0.2", got)
	}
	if cfg.SyncConcurrency != 8 {
		t.Errorf("SyncConcurrency = %d, want 8", cfg.SyncConcurrency)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"bad concurrency", map[string]string{"SYNC_CONCURRENCY": "0"}},
		{"missing rates file", map[string]string{"RATES_PATH": "/nonexistent/rates.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
