package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestMonthlyTotalReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/monthly-total?month=1&year=2026", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp monthlyTotalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 859 {
		t.Errorf("January total = %v, want 859", resp.Total)
	}
	if resp.Formatted != "₹ 859.00" {
		t.Errorf("formatted = %q, want ₹ 859.00", resp.Formatted)
	}
}

func TestDailyTotalsReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/daily-totals?month=2&year=2026", "")
	var resp dailyTotalsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := map[int]float64{5: 140, 10: 280, 15: 290}
	if len(resp.Days) != len(want) {
		t.Fatalf("got %d days, want %d: %v", len(resp.Days), len(want), resp.Days)
	}
	for day, total := range want {
		if resp.Days[day] != total {
			t.Errorf("day %d = %v, want %v", day, resp.Days[day], total)
		}
	}
}

func TestTopExpensesReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/top-expenses?month=2&year=2026&n=2", "")
	var resp topExpensesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(resp.Items))
	}
	if resp.Items[0].Name != "Ponni Rice" || resp.Items[0].Total != 290 {
		t.Errorf("top expense = %+v, want Ponni Rice 290", resp.Items[0])
	}

	rec = doRequest(s, http.MethodGet, "/api/reports/top-expenses?month=2&year=2026&n=0", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("n=0 status = %d, want 422", rec.Code)
	}
}

func TestShopSessionsReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/shop-sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unknown Shop") {
		t.Errorf("seed transactions carry no shop, expected Unknown Shop group: %s", rec.Body.String())
	}
}

func TestSummaryReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/summary?month=2&year=2026", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q, want text/plain", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "February 2026") || !strings.Contains(body, "₹ 710.00") {
		t.Errorf("summary body missing expected content:\n%s", body)
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/reports/monthly-total?month=2&year=2026", "")
	var before monthlyTotalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if before.Total != 710 {
		t.Fatalf("February total = %v, want 710", before.Total)
	}

	rec = doRequest(s, http.MethodPost, "/api/purchases", `{
		"date": "2026-02-20",
		"itemName": "Milk",
		"pricePerUnit": 28,
		"quantity": 2,
		"unit": "ltr"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/reports/monthly-total?month=2&year=2026", "")
	var after monthlyTotalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Total != 766 {
		t.Errorf("total after purchase = %v, want 766 (cache must be purged)", after.Total)
	}
}
