// Package config loads runtime settings from the environment and the
// optional rates file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mmynk/valetpay/internal/rates"
	"github.com/mmynk/valetpay/internal/service"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds everything the binaries need to wire the engine.
type Config struct {
	DBDriver        string
	DBPath          string
	DatabaseURL     string
	HTTPAddr        string
	RatesPath       string
	SyncConcurrency int

	Rates *rates.Config
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:    getEnv("DB_DRIVER", DriverSQLite),
		DBPath:      getEnv("DB_PATH", "./data/payroll.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		RatesPath:   os.Getenv("RATES_PATH"),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	cfg.SyncConcurrency = service.DefaultSyncConcurrency
	if v := os.Getenv("SYNC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SYNC_CONCURRENCY %q", v)
		}
		cfg.SyncConcurrency = n
	}

	cfg.Rates = rates.Defaults()
	if cfg.RatesPath != "" {
		r, err := rates.Load(cfg.RatesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rates: %w", err)
		}
		cfg.Rates = r
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
