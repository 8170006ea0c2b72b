package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/adbridge/internal/ads"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Service records banner lifecycle transitions.
type Service interface {
	ads.Recorder
	RecentTransitions(ctx context.Context, limit int) ([]EventRecord, error)
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// EventRecord mirrors a row in the ad_lifecycle_events table.
type EventRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Op         string    `json:"op"`
	Platform   string    `json:"platform"`
	FromPhase  string    `json:"from_phase"`
	ToPhase    string    `json:"to_phase"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS ad_lifecycle_events (
       timestamp    DateTime64(3),
       op           LowCardinality(String),
       platform     LowCardinality(String),
       from_phase   LowCardinality(String),
       to_phase     LowCardinality(String),
       outcome      LowCardinality(String),
       error        String,
       duration_ms  Float64
   ) ENGINE=MergeTree() ORDER BY (op, timestamp)`

// InitClickHouse connects to ClickHouse and ensures the events table exists.
func InitClickHouse(dsn string, logger *zap.Logger) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(5)
	return newAnalytics(context.Background(), db, logger)
}

// newAnalytics checks db and ensures the events table. db is closed on failure.
func newAnalytics(ctx context.Context, db *sql.DB, logger *zap.Logger) (*Analytics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	logger.Info("Connected to ClickHouse")
	return &Analytics{DB: db, Logger: logger}, nil
}

var _ Service = (*Analytics)(nil)

// RecordTransition inserts one row per completed coordinator operation.
func (a *Analytics) RecordTransition(ctx context.Context, t ads.Transition) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO ad_lifecycle_events (timestamp, op, platform, from_phase, to_phase, outcome, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.At, string(t.Op), t.Platform, t.From.String(), t.To.String(), t.Outcome, t.Error,
		float64(t.Duration.Microseconds())/1000,
	)
	if err != nil {
		return fmt.Errorf("insert lifecycle event: %w", err)
	}
	return nil
}

// RecentTransitions returns the newest events first.
func (a *Analytics) RecentTransitions(ctx context.Context, limit int) ([]EventRecord, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.DB.QueryContext(ctx,
		`SELECT timestamp, op, platform, from_phase, to_phase, outcome, error, duration_ms
		 FROM ad_lifecycle_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query lifecycle events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.Timestamp, &r.Op, &r.Platform, &r.FromPhase, &r.ToPhase, &r.Outcome, &r.Error, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil && a.Logger != nil {
			a.Logger.Error("clickhouse close", zap.Error(err))
		}
	}
}
