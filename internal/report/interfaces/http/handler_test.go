package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"meterpay/internal/auth"
	"meterpay/internal/report/application"
	report "meterpay/internal/report/domain"
	"meterpay/internal/report/infrastructure/memory"
	"meterpay/internal/report/infrastructure/pricing"
	"meterpay/internal/report/interfaces/export"
)

type siteSubjects map[string]string

func (s siteSubjects) ReportSubject(_ context.Context, accountID string) (string, error) {
	site, ok := s[accountID]
	if !ok {
		return "", errors.New("not logged in")
	}
	return site, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestHandler(t *testing.T, deliverer *export.Deliverer) *Handler {
	t.Helper()
	source := memory.NewStaticSeriesSource()
	source.Set("site-a", report.DailyPeriod(2024, time.May), []float64{10, 20, 30})
	source.Set("site-b", report.DailyPeriod(2024, time.May), []float64{99})
	rates, err := pricing.NewFixedRateProvider(8)
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	agg, err := application.NewAggregator(source, rates)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	subjects := siteSubjects{"MTR-A": "site-a", "MTR-B": "site-b"}
	h, err := NewHandler(agg, subjects, deliverer, fixedClock{now: time.Date(2024, time.May, 20, 8, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func reportRequest(method, target string, body io.Reader) *http.Request {
	return accountRequest("MTR-A", method, target, body)
}

func accountRequest(accountID, method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.WithAccount(req.Context(), accountID))
}

func TestReportHandlerDefaultsToCurrentMonth(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reportRequest(http.MethodGet, "/api/v1/reports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Period != "May 2024" || len(resp.Units) != 31 || len(resp.Labels) != 31 {
		t.Fatalf("unexpected response: %s %d %d", resp.Period, len(resp.Units), len(resp.Labels))
	}
	if resp.Summary.Units.Maximum != 30 || resp.Summary.Amount.Maximum != 240 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
}

func TestReportHandlerMonthly(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reportRequest(http.MethodGet, "/api/v1/reports?granularity=monthly&year=2023", nil))
	var resp reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Units) != 12 || resp.View != "Monthly" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReportHandlerRejectsBadPeriod(t *testing.T) {
	h := newTestHandler(t, nil)
	for _, target := range []string{
		"/api/v1/reports?granularity=weekly",
		"/api/v1/reports?month=13",
		"/api/v1/reports?year=abc",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, reportRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestReportHandlerDownloadCSV(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reportRequest(http.MethodGet, "/api/v1/reports/export.csv?month=5&year=2024", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "energy_report_2024-05_") {
		t.Fatalf("unexpected disposition %s", rec.Header().Get("Content-Disposition"))
	}
	units, _, err := export.ParseCSVSummary(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if units.Maximum != 30 {
		t.Fatalf("unexpected units summary: %+v", units)
	}
}

func TestReportHandlerDeliverFallsBackToStorage(t *testing.T) {
	deliverer, err := export.NewDeliverer(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("deliverer: %v", err)
	}
	h := newTestHandler(t, deliverer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reportRequest(http.MethodPost, "/api/v1/reports/export.pdf", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var receipt export.Receipt
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if receipt.Shared || receipt.MIMEType != "application/pdf" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if _, err := os.Stat(receipt.Location); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestReportHandlerUnknownFormat(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reportRequest(http.MethodGet, "/api/v1/reports/export.doc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReportHandlerScopesToAccountSite(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, accountRequest("MTR-B", http.MethodGet, "/api/v1/reports?month=5&year=2024", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Units[0] != 99 || resp.Summary.Units.Maximum != 99 {
		t.Fatalf("expected site-b series, got %v", resp.Units[:3])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without account, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, accountRequest("MTR-GONE", http.MethodGet, "/api/v1/reports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for account without session, got %d", rec.Code)
	}
}
