package app

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Trigger runs one aggregation cycle immediately, persists the snapshot,
// and sends one test message per tier to the admin address.
func (a *App) Trigger(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot run a cycle")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, nil, false)
	snap, outcome, err := svc.Trigger(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "snapshot %s persisted\n", snap.ID)
	fmt.Fprintf(os.Stdout, "mode=%s aggregate_risk_score=%d\n", snap.Mode, snap.AggregateRiskScore)
	fmt.Fprintf(os.Stdout, "test sends: sent=%d failed=%d\n", outcome.Sent, outcome.Failed)
	return nil
}
