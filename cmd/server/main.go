package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/valetpay/internal/api"
	"github.com/mmynk/valetpay/internal/config"
	"github.com/mmynk/valetpay/internal/middleware"
	"github.com/mmynk/valetpay/internal/service"
	"github.com/mmynk/valetpay/internal/storage/backend"
	"github.com/mmynk/valetpay/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := backend.Open(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	syncer := service.NewLedgerSynchronizer(store, store, cfg.SyncConcurrency)
	handler := api.NewHandler(
		service.NewPayrollService(store, cfg.Rates, syncer),
		service.NewReconciliationService(store, cfg.Rates, syncer),
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// h2c serves HTTP/2 without TLS for clients behind a terminating proxy.
	h2cHandler := h2c.NewHandler(middleware.Logging(mux), &http2.Server{})

	slog.Info("Payroll server starting",
		"address", cfg.HTTPAddr,
		"rates", cfg.RatesPath,
		"sync_concurrency", cfg.SyncConcurrency,
	)
	if err := http.ListenAndServe(cfg.HTTPAddr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
