package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// recordingMailer tracks sends and concurrency, failing the addresses in
// failFor.
type recordingMailer struct {
	mu        sync.Mutex
	sent      []string
	failFor   map[string]bool
	inFlight  int
	peakBatch int
}

func (m *recordingMailer) Send(ctx context.Context, to string, msg Message) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peakBatch {
		m.peakBatch = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.failFor[to] {
		return errors.New("smtp rejected")
	}

	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	return nil
}

func makeRecipients(n int) []Recipient {
	recipients := make([]Recipient, n)
	for i := range recipients {
		recipients[i] = Recipient{
			ID:      fmt.Sprintf("r%d", i),
			Address: fmt.Sprintf("user%d@example.com", i),
			Tier:    TierPro,
		}
	}
	return recipients
}

func TestDispatchBatching(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, NewComposer(""), 20, testLogger())

	outcome := d.Dispatch(context.Background(), makeRecipients(45), snapshotFixture(), ChartRefs{})

	if outcome.Sent != 45 || outcome.Failed != 0 {
		t.Fatalf("outcome = %+v, want 45 sent", outcome)
	}
	// 45 recipients in batches of 20 never exceed 20 concurrent sends.
	if mailer.peakBatch > 20 {
		t.Fatalf("peak concurrency %d exceeds batch size 20", mailer.peakBatch)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	mailer := &recordingMailer{failFor: map[string]bool{
		"user3@example.com":  true,
		"user21@example.com": true,
	}}
	d := NewDispatcher(mailer, NewComposer(""), 20, testLogger())

	var results []bool
	var mu sync.Mutex
	d.OnResult(func(ok bool) {
		mu.Lock()
		results = append(results, ok)
		mu.Unlock()
	})

	recipients := makeRecipients(45)
	outcome := d.Dispatch(context.Background(), recipients, snapshotFixture(), ChartRefs{})

	if outcome.Sent+outcome.Failed != len(recipients) {
		t.Fatalf("tally %d+%d != %d recipients", outcome.Sent, outcome.Failed, len(recipients))
	}
	if outcome.Failed != 2 {
		t.Fatalf("failed = %d, want 2", outcome.Failed)
	}
	if len(results) != len(recipients) {
		t.Fatalf("result hook saw %d outcomes, want %d", len(results), len(recipients))
	}
	// The failure in the first batch must not suppress later batches.
	if len(mailer.sent) != 43 {
		t.Fatalf("sent %d messages, want 43", len(mailer.sent))
	}
}

func TestDispatchEmpty(t *testing.T) {
	d := NewDispatcher(&recordingMailer{}, NewComposer(""), 20, testLogger())
	outcome := d.Dispatch(context.Background(), nil, snapshotFixture(), ChartRefs{})
	if outcome.Sent != 0 || outcome.Failed != 0 {
		t.Fatalf("empty dispatch should tally zero, got %+v", outcome)
	}
}

func TestDispatchTierSelection(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, NewComposer(""), 20, testLogger())

	recipients := []Recipient{
		{ID: "a", Address: "basic@example.com", Tier: TierBasic},
		{ID: "b", Address: "expert@example.com", Tier: TierExpert},
	}
	outcome := d.Dispatch(context.Background(), recipients, snapshotFixture(), ChartRefs{TrendURL: "https://charts/x"})
	if outcome.Sent != 2 {
		t.Fatalf("outcome = %+v, want 2 sent", outcome)
	}
}
