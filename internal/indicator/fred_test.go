package indicator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFREDLatestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("series_id"); got != "VIXCLS" {
			t.Fatalf("series_id = %q, want VIXCLS", got)
		}
		if got := r.URL.Query().Get("sort_order"); got != "desc" {
			t.Fatalf("sort_order = %q, want desc", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"observations": []map[string]string{
				{"date": "2026-08-28", "value": "16.45"},
			},
		})
	}))
	defer srv.Close()

	client := NewFREDClient(FREDOptions{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	obs, err := client.Latest(context.Background(), "VIXCLS")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if obs.Value != 16.45 {
		t.Fatalf("value = %v, want 16.45", obs.Value)
	}
	if obs.Date.Format("2006-01-02") != "2026-08-28" {
		t.Fatalf("date = %v, want 2026-08-28", obs.Date)
	}
}

func TestFREDLatestHolidayGap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// FRED publishes "." when no value exists for the latest date.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"observations": []map[string]string{
				{"date": "2026-08-28", "value": "."},
			},
		})
	}))
	defer srv.Close()

	client := NewFREDClient(FREDOptions{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := client.Latest(context.Background(), "DGS10"); err == nil {
		t.Fatal("non-numeric observation should be an error")
	}
}

func TestFREDLatestEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"observations": []any{}})
	}))
	defer srv.Close()

	client := NewFREDClient(FREDOptions{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := client.Latest(context.Background(), "CFNAI"); err == nil {
		t.Fatal("empty observation list should be an error")
	}
}

func TestFREDLatestMissingKey(t *testing.T) {
	client := NewFREDClient(FREDOptions{}, noopLogger())
	if _, err := client.Latest(context.Background(), "VIXCLS"); err == nil {
		t.Fatal("missing api key should be an error")
	}
}
