// Package api exposes the payroll engine over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/service"
	"github.com/mmynk/valetpay/internal/storage"
)

const dateLayout = "2006-01-02"

// Handler serves the payroll API.
type Handler struct {
	payroll   *service.PayrollService
	reconcile *service.ReconciliationService
}

// NewHandler creates a Handler backed by the given services.
func NewHandler(payroll *service.PayrollService, reconcile *service.ReconciliationService) *Handler {
	return &Handler{payroll: payroll, reconcile: reconcile}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/shifts", h.submitShift)
	mux.HandleFunc("PUT /api/shifts/{id}", h.editShift)
	mux.HandleFunc("GET /api/shifts/{id}/ledger", h.shiftLedger)
	mux.HandleFunc("GET /api/employees/{id}/pay-summary", h.paySummary)
	mux.HandleFunc("GET /api/reconciliation", h.validate)
	mux.HandleFunc("GET /api/reconciliation/corrections", h.proposeCorrections)
	mux.HandleFunc("POST /api/reconciliation/shifts/{id}/apply", h.applyCorrections)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// shiftRequest is the wire form of a shift report. Employees is passed to
// the parser untouched, so it may be a list or a (re-)encoded string.
type shiftRequest struct {
	LocationID         string          `json:"locationId"`
	Date               string          `json:"date"`
	Shift              string          `json:"shift"`
	TotalCars          int             `json:"totalCars"`
	CreditTransactions int             `json:"creditTransactions"`
	TotalCreditSales   float64         `json:"totalCreditSales"`
	TotalReceipts      int             `json:"totalReceipts"`
	TotalCash          float64         `json:"totalCash"`
	CompanyCashTurnIn  float64         `json:"companyCashTurnIn"`
	TotalTurnIn        float64         `json:"totalTurnIn"`
	TotalJobHours      float64         `json:"totalJobHours"`
	TipModel           string          `json:"tipModel"`
	Employees          json.RawMessage `json:"employees"`
}

func (req shiftRequest) totals() (models.ShiftTotals, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return models.ShiftTotals{}, &service.RejectionError{Field: "date", Err: err}
	}
	return models.ShiftTotals{
		LocationID:         req.LocationID,
		Date:               date,
		Shift:              req.Shift,
		TotalCars:          req.TotalCars,
		CreditTransactions: req.CreditTransactions,
		TotalCreditSales:   req.TotalCreditSales,
		TotalReceipts:      req.TotalReceipts,
		TotalCash:          req.TotalCash,
		CompanyCashTurnIn:  req.CompanyCashTurnIn,
		TotalTurnIn:        req.TotalTurnIn,
		TotalJobHours:      req.TotalJobHours,
		TipModel:           models.TipModel(req.TipModel),
	}, nil
}

func (h *Handler) submitShift(w http.ResponseWriter, r *http.Request) {
	req, totals, ok := decodeShift(w, r)
	if !ok {
		return
	}
	out, err := h.payroll.SubmitShift(r.Context(), totals, employeesPayload(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) editShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, totals, ok := decodeShift(w, r)
	if !ok {
		return
	}
	totals.ID = id
	out, err := h.payroll.EditShift(r.Context(), totals, employeesPayload(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) shiftLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.payroll.ShiftLedger(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) paySummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid year", Field: "year"})
			return
		}
		year = y
	}
	summary, err := h.payroll.MonthlyPaySummary(r.Context(), id, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reconcile.Validate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) proposeCorrections(w http.ResponseWriter, r *http.Request) {
	corrections, err := h.reconcile.ProposeCorrections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, corrections)
}

func (h *Handler) applyCorrections(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.reconcile.ApplyCorrections(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeShift(w http.ResponseWriter, r *http.Request) (shiftRequest, models.ShiftTotals, bool) {
	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return req, models.ShiftTotals{}, false
	}
	totals, err := req.totals()
	if err != nil {
		writeError(w, err)
		return req, models.ShiftTotals{}, false
	}
	return req, totals, true
}

// employeesPayload maps an absent or null employees field to no payload.
func employeesPayload(req shiftRequest) any {
	if len(req.Employees) == 0 {
		return nil
	}
	return req.Employees
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Field: "id"})
		return 0, false
	}
	return id, true
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var rejection *service.RejectionError
	switch {
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: rejection.Error(), Field: rejection.Field})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
