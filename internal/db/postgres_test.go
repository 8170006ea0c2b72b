package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Postgres{DB: db}, mock
}

func TestPostgres_JournalWritesScreenLog(t *testing.T) {
	pg, mock := newMockPostgres(t)
	ctx := context.Background()
	mountedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	unmountedAt := mountedAt.Add(42 * time.Second)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO screen_mounts (id, screen, mounted_at)`)).
		WithArgs("s1", "invoice-list", mountedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE screen_mounts SET deferred_show_fired = true`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE screen_mounts SET unmounted_at = $2`)).
		WithArgs("s1", unmountedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, pg.RecordMount(ctx, "s1", "invoice-list", mountedAt))
	require.NoError(t, pg.RecordShowFired(ctx, "s1"))
	require.NoError(t, pg.RecordUnmount(ctx, "s1", unmountedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_JournalError(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO screen_mounts`)).
		WillReturnError(errors.New("duplicate key"))

	err := pg.RecordMount(context.Background(), "s1", "home", time.Now())
	assert.EqualError(t, err, "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentMounts(t *testing.T) {
	pg, mock := newMockPostgres(t)
	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	closed := older.Add(30 * time.Second)

	cols := []string{"id", "screen", "mounted_at", "unmounted_at", "deferred_show_fired"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM screen_mounts ORDER BY mounted_at DESC LIMIT $1`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s2", "settings", newer, nil, false).
			AddRow("s1", "invoice-list", older, closed, true))

	records, err := pg.RecentMounts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "s2", records[0].ID)
	assert.Nil(t, records[0].UnmountedAt, "still mounted")
	assert.False(t, records[0].DeferredShowFired)

	assert.Equal(t, "invoice-list", records[1].Screen)
	require.NotNil(t, records[1].UnmountedAt)
	assert.True(t, closed.Equal(*records[1].UnmountedAt))
	assert.True(t, records[1].DeferredShowFired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentMountsDefaultLimit(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM screen_mounts`)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "screen", "mounted_at", "unmounted_at", "deferred_show_fired"}))

	records, err := pg.RecentMounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "ok",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				m.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS screen_mounts`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "ping fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing().WillReturnError(errors.New("connection refused"))
				m.ExpectClose()
			},
			wantErr: "postgres ping",
		},
		{
			name: "schema fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				m.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS screen_mounts`)).
					WillReturnError(errors.New("permission denied"))
				m.ExpectClose()
			},
			wantErr: "ensure schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			tt.setup(mock)

			pg, err := newPostgres(context.Background(), db)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, pg)
			} else {
				require.NoError(t, err)
				assert.Same(t, db, pg.DB)
			}
			// failed constructors must have closed the handle already
			assert.NoError(t, mock.ExpectationsWereMet())
			if pg != nil {
				_ = pg.DB.Close()
			}
		})
	}
}
