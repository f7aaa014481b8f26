package indicator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newAlphaVantageTest(t *testing.T, handler http.HandlerFunc) (*AlphaVantage, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := NewAlphaVantage(AlphaVantageOptions{
		APIKey:         "key",
		BaseURL:        srv.URL,
		Timeout:        time.Second,
		RequestsPerMin: 600,
	}, noopLogger())
	return client, srv.Close
}

func TestGlobalQuoteSuccess(t *testing.T) {
	client, closeSrv := newAlphaVantageTest(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Fatalf("function = %q, want GLOBAL_QUOTE", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Global Quote": map[string]string{"05. price": "512.34"},
		})
	})
	defer closeSrv()

	price, err := client.GlobalQuote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("GlobalQuote returned error: %v", err)
	}
	if price != 512.34 {
		t.Fatalf("price = %v, want 512.34", price)
	}
}

func TestGlobalQuoteRateLimited(t *testing.T) {
	client, closeSrv := newAlphaVantageTest(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute",
		})
	})
	defer closeSrv()

	if _, err := client.GlobalQuote(context.Background(), "SPY"); err == nil {
		t.Fatal("rate-limit Note payload should be an error")
	}
}

func TestDailyClosesNewestFirst(t *testing.T) {
	client, closeSrv := newAlphaVantageTest(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("outputsize"); got != "full" {
			t.Fatalf("outputsize = %q, want full", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Time Series (Daily)": map[string]map[string]string{
				"2026-08-26": {"4. close": "498.00"},
				"2026-08-28": {"4. close": "502.50"},
				"2026-08-27": {"4. close": "500.25"},
			},
		})
	})
	defer closeSrv()

	closes, err := client.DailyCloses(context.Background(), "SPY", "full")
	if err != nil {
		t.Fatalf("DailyCloses returned error: %v", err)
	}
	want := []float64{502.50, 500.25, 498.00}
	if len(closes) != len(want) {
		t.Fatalf("got %d closes, want %d", len(closes), len(want))
	}
	for i, v := range want {
		if closes[i] != v {
			t.Fatalf("closes[%d] = %v, want %v (newest first)", i, closes[i], v)
		}
	}
}

func TestDailyClosesMissingSeries(t *testing.T) {
	client, closeSrv := newAlphaVantageTest(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Error Message": "Invalid API call"})
	})
	defer closeSrv()

	if _, err := client.DailyCloses(context.Background(), "SPY", ""); err == nil {
		t.Fatal("error payload should be surfaced")
	}
}
