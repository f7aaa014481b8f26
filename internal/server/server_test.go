package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/market"
	"github.com/daramaccoille/crashalert/internal/metrics"
	"github.com/daramaccoille/crashalert/internal/notify"
)

type fakeTriggerer struct {
	snap    *market.Snapshot
	outcome notify.Outcome
	err     error
}

func (f *fakeTriggerer) Trigger(context.Context) (*market.Snapshot, notify.Outcome, error) {
	return f.snap, f.outcome, f.err
}

func snapshotFixture() *market.Snapshot {
	return &market.Snapshot{
		ID:        uuid.New(),
		CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Values: map[market.Indicator]float64{
			market.IndicatorVIX: 16.45,
		},
		RiskLevels: map[market.Indicator]int{
			market.IndicatorVIX: 0,
		},
		AggregateRiskScore: 4,
		Mode:               market.ModeBull,
		Sentiment:          "steady as she goes",
		BenchmarkPrice:     512.3,
	}
}

func newTestServer(t *testing.T, triggerer Triggerer) *httptest.Server {
	t.Helper()
	srv := New("127.0.0.1:0", triggerer, metrics.New(), zerolog.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestTriggerEndpointReturnsSnapshotAndOutcome(t *testing.T) {
	triggerer := &fakeTriggerer{
		snap:    snapshotFixture(),
		outcome: notify.Outcome{Sent: 3},
	}
	ts := newTestServer(t, triggerer)

	resp, err := http.Post(ts.URL+"/trigger-update", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /trigger-update: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Values             map[string]float64 `json:"values"`
			AggregateRiskScore int                `json:"aggregateRiskScore"`
			Mode               string             `json:"marketMode"`
		} `json:"data"`
		EmailResult notify.Outcome `json:"emailResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !payload.Success {
		t.Error("success = false, want true")
	}
	if payload.Data.Mode != "BULL" {
		t.Errorf("marketMode = %q, want BULL", payload.Data.Mode)
	}
	if payload.Data.AggregateRiskScore != 4 {
		t.Errorf("aggregateRiskScore = %d, want 4", payload.Data.AggregateRiskScore)
	}
	if got := payload.Data.Values["vix"]; got != 16.45 {
		t.Errorf("values[vix] = %v, want 16.45", got)
	}
	if payload.EmailResult.Sent != 3 {
		t.Errorf("emailResult.sent = %d, want 3", payload.EmailResult.Sent)
	}
}

func TestTriggerEndpointAcceptsGet(t *testing.T) {
	ts := newTestServer(t, &fakeTriggerer{snap: snapshotFixture()})

	resp, err := http.Get(ts.URL + "/trigger-update")
	if err != nil {
		t.Fatalf("GET /trigger-update: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTriggerEndpointReportsCycleFailure(t *testing.T) {
	ts := newTestServer(t, &fakeTriggerer{err: errors.New("persist snapshot: connection refused")})

	resp, err := http.Post(ts.URL+"/trigger-update", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /trigger-update: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("expected an error body")
	}
}

func TestLivenessAndHealth(t *testing.T) {
	ts := newTestServer(t, &fakeTriggerer{snap: snapshotFixture()})

	for _, path := range []string{"/", "/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
