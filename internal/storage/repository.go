package storage

import (
	"context"
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
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS order_series (
        order_id   TEXT PRIMARY KEY,
        points     INTEGER NOT NULL,
        payload    JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS decision_results (
        order_id        TEXT PRIMARY KEY,
        decision        TEXT NOT NULL CHECK (decision IN ('hold', 'close')),
        is_correct      BOOLEAN NOT NULL,
        hold_score      NUMERIC NOT NULL,
        close_score     NUMERIC NOT NULL,
        time1_value     NUMERIC NOT NULL,
        time2_value     NUMERIC NOT NULL,
        consensus_value NUMERIC NOT NULL,
        trend_label     TEXT NOT NULL,
        neighbors       JSONB NOT NULL,
        evaluated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS order_updates (
        order_id    TEXT PRIMARY KEY,
        direction   TEXT NOT NULL,
        start_price NUMERIC NOT NULL,
        end_price   NUMERIC NOT NULL,
        updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS alerts (
        id         BIGSERIAL PRIMARY KEY,
        order_id   TEXT NOT NULL,
        decision   TEXT NOT NULL,
        channels   TEXT[] NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS alerts_order_created_idx ON alerts (order_id, created_at DESC);`

	upsertSeriesSQL = `INSERT INTO order_series (order_id, points, payload)
    VALUES ($1,$2,$3)
    ON CONFLICT (order_id) DO UPDATE
    SET points  = EXCLUDED.points,
        payload = EXCLUDED.payload;`

	listSeriesSQL = `SELECT order_id, points, payload, created_at
    FROM order_series
    ORDER BY created_at, order_id
    LIMIT NULLIF($1, 0);`

	getSeriesSQL = `SELECT order_id, points, payload, created_at
    FROM order_series
    WHERE order_id = $1;`

	countSeriesSQL = `SELECT COUNT(*) FROM order_series;`

	upsertDecisionSQL = `INSERT INTO decision_results (
        order_id,
        decision,
        is_correct,
        hold_score,
        close_score,
        time1_value,
        time2_value,
        consensus_value,
        trend_label,
        neighbors,
        evaluated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (order_id) DO UPDATE
    SET
        decision        = EXCLUDED.decision,
        is_correct      = EXCLUDED.is_correct,
        hold_score      = EXCLUDED.hold_score,
        close_score     = EXCLUDED.close_score,
        time1_value     = EXCLUDED.time1_value,
        time2_value     = EXCLUDED.time2_value,
        consensus_value = EXCLUDED.consensus_value,
        trend_label     = EXCLUDED.trend_label,
        neighbors       = EXCLUDED.neighbors,
        evaluated_at    = EXCLUDED.evaluated_at;`

	selectDecisionColumns = `SELECT
        order_id,
        decision,
        is_correct,
        hold_score::text,
        close_score::text,
        time1_value::text,
        time2_value::text,
        consensus_value::text,
        trend_label,
        neighbors,
        evaluated_at
    FROM decision_results`

	listRecentDecisionsSQL = selectDecisionColumns + `
    ORDER BY evaluated_at DESC, order_id
    LIMIT $1;`

	getDecisionSQL = selectDecisionColumns + `
    WHERE order_id = $1;`

	upsertOrderUpdateSQL = `INSERT INTO order_updates (order_id, direction, start_price, end_price, updated_at)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (order_id) DO UPDATE
    SET direction   = EXCLUDED.direction,
        start_price = EXCLUDED.start_price,
        end_price   = EXCLUDED.end_price,
        updated_at  = EXCLUDED.updated_at;`

	insertAlertSQL = `INSERT INTO alerts (order_id, decision, channels)
    VALUES ($1,$2,$3)
    RETURNING id, order_id, decision, channels, created_at;`

	lastAlertSQL = `SELECT created_at
    FROM alerts
    WHERE order_id = $1
    ORDER BY created_at DESC
    LIMIT 1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SeriesStore defines operations for trajectory persistence.
type SeriesStore interface {
	UpsertSeries(ctx context.Context, rec SeriesRecord) error
	ListSeries(ctx context.Context, limit int) ([]SeriesRecord, error)
	GetSeries(ctx context.Context, orderID string) (SeriesRecord, error)
	CountSeries(ctx context.Context) (int64, error)
}

// DecisionStore defines operations for evaluation results.
type DecisionStore interface {
	UpsertDecision(ctx context.Context, rec DecisionRecord) error
	ListRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error)
	GetDecision(ctx context.Context, orderID string) (DecisionRecord, error)
	UpsertOrderUpdate(ctx context.Context, rec OrderUpdateRecord) error
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	LastAlertAt(ctx context.Context, orderID string) (time.Time, bool, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to series, decisions and alerts.
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

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
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
		// best effort; the lock also dies with the session
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSeries persists or replaces a trajectory.
func (s *Store) UpsertSeries(ctx context.Context, rec SeriesRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertSeriesSQL, rec.OrderID, rec.Points, []byte(rec.Payload)); execErr != nil {
		return fmt.Errorf("upsert series %s: %w", rec.OrderID, execErr)
	}
	return nil
}

// ListSeries lists stored trajectories in ingestion order. A non-positive
// limit returns all of them.
func (s *Store) ListSeries(ctx context.Context, limit int) ([]SeriesRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSeriesSQL, max(limit, 0))
	if queryErr != nil {
		return nil, fmt.Errorf("list series: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SeriesRecord, 0, max(limit, 0))
	for rows.Next() {
		var rec SeriesRecord
		if err := rows.Scan(&rec.OrderID, &rec.Points, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// GetSeries loads one trajectory.
func (s *Store) GetSeries(ctx context.Context, orderID string) (SeriesRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return SeriesRecord{}, err
	}
	var rec SeriesRecord
	scanErr := pool.QueryRow(ctx, getSeriesSQL, orderID).Scan(&rec.OrderID, &rec.Points, &rec.Payload, &rec.CreatedAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return SeriesRecord{}, fmt.Errorf("%w: series %s", ErrNotFound, orderID)
	}
	if scanErr != nil {
		return SeriesRecord{}, fmt.Errorf("get series %s: %w", orderID, scanErr)
	}
	return rec, nil
}

// CountSeries counts stored trajectories.
func (s *Store) CountSeries(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSeriesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count series: %w", scanErr)
	}
	return count, nil
}

// UpsertDecision persists the latest evaluation of an order.
func (s *Store) UpsertDecision(ctx context.Context, rec DecisionRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	evaluatedAt := rec.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now().UTC()
	}
	neighbors := []byte(rec.Neighbors)
	if len(neighbors) == 0 {
		neighbors = []byte("[]")
	}

	_, execErr := pool.Exec(ctx, upsertDecisionSQL,
		rec.OrderID,
		rec.Decision,
		rec.IsCorrect,
		rec.HoldScore.String(),
		rec.CloseScore.String(),
		rec.Time1Value.String(),
		rec.Time2Value.String(),
		rec.ConsensusValue.String(),
		rec.TrendLabel,
		neighbors,
		evaluatedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert decision %s: %w", rec.OrderID, execErr)
	}
	return nil
}

// ListRecentDecisions lists the latest evaluations.
func (s *Store) ListRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDecisionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent decisions: %w", queryErr)
	}
	defer rows.Close()

	records := make([]DecisionRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanDecision(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// GetDecision loads the evaluation of one order.
func (s *Store) GetDecision(ctx context.Context, orderID string) (DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return DecisionRecord{}, err
	}
	rec, scanErr := scanDecision(pool.QueryRow(ctx, getDecisionSQL, orderID))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return DecisionRecord{}, fmt.Errorf("%w: decision %s", ErrNotFound, orderID)
	}
	if scanErr != nil {
		return DecisionRecord{}, fmt.Errorf("get decision %s: %w", orderID, scanErr)
	}
	return rec, nil
}

// UpsertOrderUpdate persists revised prices for an order.
func (s *Store) UpsertOrderUpdate(ctx context.Context, rec OrderUpdateRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, execErr := pool.Exec(ctx, upsertOrderUpdateSQL,
		rec.OrderID,
		rec.Direction,
		rec.StartPrice.String(),
		rec.EndPrice.String(),
		updatedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert order update %s: %w", rec.OrderID, execErr)
	}
	return nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	var rec AlertRecord
	if scanErr := pool.QueryRow(ctx, insertAlertSQL, alert.OrderID, alert.Decision, alert.Channels).Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.Decision,
		&rec.Channels,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// LastAlertAt returns when an order was last alerted, if ever.
func (s *Store) LastAlertAt(ctx context.Context, orderID string) (time.Time, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, false, err
	}
	var at time.Time
	scanErr := pool.QueryRow(ctx, lastAlertSQL, orderID).Scan(&at)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if scanErr != nil {
		return time.Time{}, false, fmt.Errorf("last alert %s: %w", orderID, scanErr)
	}
	return at, true, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanDecision(row pgx.Row) (DecisionRecord, error) {
	var (
		rec       DecisionRecord
		holdStr   string
		closeStr  string
		time1Str  string
		time2Str  string
		consStr   string
		neighbors []byte
	)
	if err := row.Scan(
		&rec.OrderID,
		&rec.Decision,
		&rec.IsCorrect,
		&holdStr,
		&closeStr,
		&time1Str,
		&time2Str,
		&consStr,
		&rec.TrendLabel,
		&neighbors,
		&rec.EvaluatedAt,
	); err != nil {
		return DecisionRecord{}, err
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"hold score", holdStr, &rec.HoldScore},
		{"close score", closeStr, &rec.CloseScore},
		{"time1 value", time1Str, &rec.Time1Value},
		{"time2 value", time2Str, &rec.Time2Value},
		{"consensus value", consStr, &rec.ConsensusValue},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return DecisionRecord{}, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}
	rec.Neighbors = neighbors
	return rec, nil
}
