package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/daramaccoille/crashalert/internal/storage"
)

// Export renders snapshot history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	snapshots, err := store.ListSnapshotsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		a.Logger.Info().Msg("no snapshots found for export window")
		return nil
	}

	downsampled := downsampleSnapshots(snapshots, opts.MaxPoints)
	a.Logger.Info().Int("total", len(snapshots)).Int("exported", len(downsampled)).Msg("exporting snapshots")

	if opts.CSVPath != "" {
		if err := writeSnapshotsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSnapshotsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSnapshots(snapshots []storage.SnapshotRecord, max int) []storage.SnapshotRecord {
	if max <= 0 || len(snapshots) <= max {
		return snapshots
	}

	result := make([]storage.SnapshotRecord, 0, max)
	step := float64(len(snapshots)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		result = append(result, snapshots[idx])
	}
	return result
}

func writeSnapshotsCSV(path string, snapshots []storage.SnapshotRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"created_at", "vix", "yield_spread", "sp500_pe", "junk_bond_spread_bps",
		"margin_debt", "insider_activity", "cfnai", "liquidity", "one_month_ahead",
		"aggregate_risk_score", "market_mode",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, snap := range snapshots {
		record := []string{
			snap.CreatedAt.Format(time.RFC3339),
			snap.VIX.String(),
			snap.YieldSpread.String(),
			snap.SP500PE.String(),
			strconv.Itoa(snap.JunkBondSpreadBps),
			snap.MarginDebt.String(),
			snap.InsiderActivity.String(),
			snap.CFNAI.String(),
			snap.Liquidity.String(),
			snap.OneMonthAhead.String(),
			strconv.Itoa(snap.AggregateRiskScore),
			snap.MarketMode,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSnapshotsPNG(path string, snapshots []storage.SnapshotRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(snapshots))
	riskScore := make([]float64, len(snapshots))
	vix := make([]float64, len(snapshots))

	for i, snap := range snapshots {
		x[i] = snap.CreatedAt
		riskScore[i] = float64(snap.AggregateRiskScore)
		vix[i] = snap.VIX.InexactFloat64()
	}

	scoreFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Aggregate Risk Score",
			ValueFormatter: scoreFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "VIX",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Risk Score",
				XValues: x,
				YValues: riskScore,
			},
			chart.TimeSeries{
				Name:    "VIX",
				XValues: x,
				YValues: vix,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
