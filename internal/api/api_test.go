package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/mmynk/valetpay/internal/models"
	"github.com/mmynk/valetpay/internal/service"
	"github.com/mmynk/valetpay/internal/storage/sqlite"
)

// setupTestServer creates a test server over a temp SQLite database.
func setupTestServer(t *testing.T) *httptest.Server {
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

	for _, name := range []string{"Alice Park", "Bob Diaz"} {
		if err := store.CreateEmployee(context.Background(), &models.Employee{Name: name}); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}
	}

	syncer := service.NewLedgerSynchronizer(store, store, 2)
	mux := http.NewServeMux()
	NewHandler(
		service.NewPayrollService(store, nil, syncer),
		service.NewReconciliationService(store, nil, syncer),
	).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return server
}

const shiftBody = `{
	"locationId": "12",
	"date": "2024-03-09",
	"shift": "PM",
	"totalCars": 100,
	"totalCreditSales": 700,
	"totalJobHours": 10,
	"tipModel": "blended",
	"employees": "[{\"name\":\"alice\",\"hoursWorked\":5,\"cashPaid\":10},{\"name\":\"bob\",\"hoursWorked\":5}]"
}`

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if m, ok := decoded.(map[string]any); ok {
		return resp, m
	}
	return resp, map[string]any{"items": decoded}
}

func TestSubmitAndEditShift(t *testing.T) {
	server := setupTestServer(t)

	resp, body := do(t, http.MethodPost, server.URL+"/api/shifts", shiftBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	ledger, _ := body["ledger"].([]any)
	if len(ledger) != 2 {
		t.Fatalf("ledger = %v, want 2 entries", body["ledger"])
	}
	alice := ledger[0].(map[string]any)
	if alice["taxAmount"] != "44" || alice["remainingAmount"] != "34" {
		t.Errorf("alice entry = %v", alice)
	}

	report := body["report"].(map[string]any)
	id := int64(report["id"].(float64))
	shiftURL := server.URL + "/api/shifts/" + strconv.FormatInt(id, 10)

	resp, body = do(t, http.MethodPut, shiftURL, strings.Replace(shiftBody, `\"cashPaid\":10`, `\"cashPaid\":15`, 1))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d, body = %v", resp.StatusCode, body)
	}
	alice = body["ledger"].([]any)[0].(map[string]any)
	if alice["paidAmount"] != "25" {
		t.Errorf("paid after edit = %v, want 25", alice["paidAmount"])
	}

	resp, body = do(t, http.MethodGet, shiftURL+"/ledger", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ledger status = %d", resp.StatusCode)
	}
	if items := body["items"].([]any); len(items) != 2 {
		t.Errorf("ledger items = %v", items)
	}

	resp, body = do(t, http.MethodGet, server.URL+"/api/employees/1/pay-summary?year=2024", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay summary status = %d", resp.StatusCode)
	}
	months := body["items"].([]any)
	if len(months) != 1 || months[0].(map[string]any)["month"] != "2024-03" {
		t.Errorf("pay summary = %v", months)
	}

	resp, body = do(t, http.MethodGet, server.URL+"/api/reconciliation", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reconciliation status = %d", resp.StatusCode)
	}
	if body["shiftsAudited"] != float64(1) {
		t.Errorf("reconciliation = %v", body)
	}
}

func TestErrorMapping(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "invalid employee record",
			method:     http.MethodPost,
			path:       "/api/shifts",
			body:       `{"locationId":"12","date":"2024-03-09","totalJobHours":4,"employees":[{"name":"jonathan","hoursWorked":-1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "employees[0].hoursWorked",
		},
		{
			name:       "bad date",
			method:     http.MethodPost,
			path:       "/api/shifts",
			body:       `{"locationId":"12","date":"03/09/2024"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "date",
		},
		{
			name:       "edit unknown shift",
			method:     http.MethodPut,
			path:       "/api/shifts/999",
			body:       `{"locationId":"12","date":"2024-03-09"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non-numeric id",
			method:     http.MethodGet,
			path:       "/api/shifts/abc/ledger",
			wantStatus: http.StatusBadRequest,
			wantField:  "id",
		},
		{
			name:       "bad year",
			method:     http.MethodGet,
			path:       "/api/employees/1/pay-summary?year=twenty",
			wantStatus: http.StatusBadRequest,
			wantField:  "year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, server.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantField != "" && body["field"] != tt.wantField {
				t.Errorf("field = %v, want %q", body["field"], tt.wantField)
			}
		})
	}
}
