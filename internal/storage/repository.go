package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSnapshotSQL = `INSERT INTO market_snapshots (
        id,
        created_at,
        vix,
        yield_spread,
        sp500_pe,
        junk_bond_spread_bps,
        margin_debt,
        insider_activity,
        cfnai,
        liquidity,
        one_month_ahead,
        vix_score,
        yield_spread_score,
        sp500_pe_score,
        junk_bond_spread_score,
        margin_debt_score,
        insider_activity_score,
        cfnai_score,
        liquidity_score,
        one_month_ahead_score,
        aggregate_risk_score,
        market_mode,
        sentiment,
        raw_json
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24
    );`

	listRecentSnapshotsSQL = `SELECT
        id,
        created_at,
        vix,
        yield_spread,
        sp500_pe,
        junk_bond_spread_bps,
        margin_debt,
        insider_activity,
        cfnai,
        liquidity,
        one_month_ahead,
        vix_score,
        yield_spread_score,
        sp500_pe_score,
        junk_bond_spread_score,
        margin_debt_score,
        insider_activity_score,
        cfnai_score,
        liquidity_score,
        one_month_ahead_score,
        aggregate_risk_score,
        market_mode,
        sentiment,
        raw_json
    FROM market_snapshots
    ORDER BY created_at DESC
    LIMIT $1;`

	listSnapshotsBetweenSQL = `SELECT
        id,
        created_at,
        vix,
        yield_spread,
        sp500_pe,
        junk_bond_spread_bps,
        margin_debt,
        insider_activity,
        cfnai,
        liquidity,
        one_month_ahead,
        vix_score,
        yield_spread_score,
        sp500_pe_score,
        junk_bond_spread_score,
        margin_debt_score,
        insider_activity_score,
        cfnai_score,
        liquidity_score,
        one_month_ahead_score,
        aggregate_risk_score,
        market_mode,
        sentiment,
        raw_json
    FROM market_snapshots
    WHERE created_at >= $1 AND created_at < $2
    ORDER BY created_at;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM market_snapshots;`

	listActiveSubscribersSQL = `SELECT
        id,
        email,
        plan,
        active,
        created_at
    FROM subscribers
    WHERE active = TRUE
    ORDER BY created_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines snapshot persistence. Snapshots are append-only;
// nothing here mutates or deletes them.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, record SnapshotRecord) error
	ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// SubscriberDirectory answers the active recipient set for a cycle.
type SubscriberDirectory interface {
	ListActiveSubscribers(ctx context.Context) ([]Subscriber, error)
}

// AdvisoryLocker exposes advisory lock helpers so only one replica runs a
// cycle at a time.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots and subscribers.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// InsertSnapshot persists one snapshot record.
func (s *Store) InsertSnapshot(ctx context.Context, record SnapshotRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertSnapshotSQL,
		record.ID,
		record.CreatedAt,
		record.VIX.String(),
		record.YieldSpread.String(),
		record.SP500PE.String(),
		record.JunkBondSpreadBps,
		record.MarginDebt.String(),
		record.InsiderActivity.String(),
		record.CFNAI.String(),
		record.Liquidity.String(),
		record.OneMonthAhead.String(),
		record.VIXScore,
		record.YieldSpreadScore,
		record.SP500PEScore,
		record.JunkBondSpreadScore,
		record.MarginDebtScore,
		record.InsiderActivityScore,
		record.CFNAIScore,
		record.LiquidityScore,
		record.OneMonthAheadScore,
		record.AggregateRiskScore,
		record.MarketMode,
		record.Sentiment,
		[]byte(record.Raw),
	)
	if execErr != nil {
		return fmt.Errorf("insert snapshot: %w", execErr)
	}
	return nil
}

// ListRecentSnapshots lists snapshots newest first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListSnapshotsBetween lists snapshots in [from, to), oldest first.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0)
	for rows.Next() {
		record, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// ListActiveSubscribers reads the active recipient set.
func (s *Store) ListActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveSubscribersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list active subscribers: %w", queryErr)
	}
	defer rows.Close()

	subscribers := make([]Subscriber, 0)
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Plan, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subscribers, nil
}

func scanSnapshot(rows pgx.Rows) (SnapshotRecord, error) {
	var record SnapshotRecord
	var raw json.RawMessage
	var vix, yieldSpread, pe, marginDebt, insider, cfnai, liquidity, oneMonth string

	if err := rows.Scan(
		&record.ID,
		&record.CreatedAt,
		&vix,
		&yieldSpread,
		&pe,
		&record.JunkBondSpreadBps,
		&marginDebt,
		&insider,
		&cfnai,
		&liquidity,
		&oneMonth,
		&record.VIXScore,
		&record.YieldSpreadScore,
		&record.SP500PEScore,
		&record.JunkBondSpreadScore,
		&record.MarginDebtScore,
		&record.InsiderActivityScore,
		&record.CFNAIScore,
		&record.LiquidityScore,
		&record.OneMonthAheadScore,
		&record.AggregateRiskScore,
		&record.MarketMode,
		&record.Sentiment,
		&raw,
	); err != nil {
		return SnapshotRecord{}, err
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&record.VIX, vix},
		{&record.YieldSpread, yieldSpread},
		{&record.SP500PE, pe},
		{&record.MarginDebt, marginDebt},
		{&record.InsiderActivity, insider},
		{&record.CFNAI, cfnai},
		{&record.Liquidity, liquidity},
		{&record.OneMonthAhead, oneMonth},
	}
	for _, f := range fields {
		value, err := decimal.NewFromString(f.src)
		if err != nil {
			return SnapshotRecord{}, fmt.Errorf("parse snapshot numeric: %w", err)
		}
		*f.dst = value
	}

	record.Raw = raw
	return record, nil
}

var (
	_ SnapshotStore       = (*Store)(nil)
	_ SubscriberDirectory = (*Store)(nil)
	_ AdvisoryLocker      = (*Store)(nil)
)
