package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent snapshots.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshots, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tVIX\tSpread\tP/E\tRisk\tMode\tSentiment")

	for _, snap := range snapshots {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			snap.CreatedAt.UTC().Format(time.RFC3339),
			formatDecimal(snap.VIX, 2),
			formatDecimal(snap.YieldSpread, 2),
			formatDecimal(snap.SP500PE, 2),
			snap.AggregateRiskScore,
			snap.MarketMode,
			sanitizeInline(snap.Sentiment),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
