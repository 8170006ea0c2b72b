package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Postgres wraps a postgres DB connection holding the screen log.
type Postgres struct {
	DB *sql.DB
}

// MountRecord is one row of the screen log.
type MountRecord struct {
	ID                string     `json:"id"`
	Screen            string     `json:"screen"`
	MountedAt         time.Time  `json:"mounted_at"`
	UnmountedAt       *time.Time `json:"unmounted_at,omitempty"`
	DeferredShowFired bool       `json:"deferred_show_fired"`
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS screen_mounts (
    id TEXT PRIMARY KEY,
    screen TEXT NOT NULL,
    mounted_at TIMESTAMPTZ NOT NULL,
    unmounted_at TIMESTAMPTZ,
    deferred_show_fired BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_screen_mounts_mounted_at ON screen_mounts (mounted_at DESC);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	p, err := newPostgres(context.Background(), db)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// newPostgres checks db and ensures the schema. db is closed on failure.
func newPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{DB: db}, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// RecordMount inserts a new screen instance.
func (p *Postgres) RecordMount(ctx context.Context, id, screen string, at time.Time) error {
	if p == nil || p.DB == nil {
		return ErrNilPostgres
	}
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO screen_mounts (id, screen, mounted_at) VALUES ($1, $2, $3)`,
		id, screen, at)
	return err
}

// RecordShowFired marks that the deferred show reached the banner.
func (p *Postgres) RecordShowFired(ctx context.Context, id string) error {
	if p == nil || p.DB == nil {
		return ErrNilPostgres
	}
	_, err := p.DB.ExecContext(ctx,
		`UPDATE screen_mounts SET deferred_show_fired = true WHERE id = $1`, id)
	return err
}

// RecordUnmount stamps the unmount time.
func (p *Postgres) RecordUnmount(ctx context.Context, id string, at time.Time) error {
	if p == nil || p.DB == nil {
		return ErrNilPostgres
	}
	_, err := p.DB.ExecContext(ctx,
		`UPDATE screen_mounts SET unmounted_at = $2 WHERE id = $1`, id, at)
	return err
}

// RecentMounts returns the newest screen instances first.
func (p *Postgres) RecentMounts(ctx context.Context, limit int) ([]MountRecord, error) {
	if p == nil || p.DB == nil {
		return nil, ErrNilPostgres
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.DB.QueryContext(ctx,
		`SELECT id, screen, mounted_at, unmounted_at, deferred_show_fired
		 FROM screen_mounts ORDER BY mounted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MountRecord
	for rows.Next() {
		var (
			r         MountRecord
			unmounted sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Screen, &r.MountedAt, &unmounted, &r.DeferredShowFired); err != nil {
			return nil, err
		}
		if unmounted.Valid {
			t := unmounted.Time
			r.UnmountedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
