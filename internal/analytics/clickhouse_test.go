package analytics

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
)

func TestRecordTransitionInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	a := &Analytics{DB: db, Logger: zap.NewNop()}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ad_lifecycle_events`)).
		WithArgs(at, "show", "ios", "hidden", "visible", ads.OutcomeSuccess, "", 12.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = a.RecordTransition(context.Background(), ads.Transition{
		At:       at,
		Op:       ads.OpShow,
		Platform: "ios",
		From:     ads.Hidden,
		To:       ads.Visible,
		Outcome:  ads.OutcomeSuccess,
		Duration: 12500 * time.Microsecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentTransitionsScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	a := &Analytics{DB: db, Logger: zap.NewNop()}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cols := []string{"timestamp", "op", "platform", "from_phase", "to_phase", "outcome", "error", "duration_ms"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM ad_lifecycle_events ORDER BY timestamp DESC LIMIT ?`)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(at, "show", "android", "hidden", "hidden", "failure", "no fill", 3.0))

	events, err := a.RecentTransitions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "failure", events[0].Outcome)
	assert.Equal(t, "no fill", events[0].Error)
	assert.Equal(t, 3.0, events[0].DurationMS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAnalyticsClosesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "ping fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing().WillReturnError(errors.New("connection refused"))
				m.ExpectClose()
			},
			wantErr: "clickhouse ping",
		},
		{
			name: "create table fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				m.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS ad_lifecycle_events`)).
					WillReturnError(errors.New("readonly"))
				m.ExpectClose()
			},
			wantErr: "clickhouse create table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			tt.setup(mock)

			a, err := newAnalytics(context.Background(), db, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, a)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNewAnalyticsDefaultsLogger(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS ad_lifecycle_events`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	a, err := newAnalytics(context.Background(), db, nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Logger)
	assert.NoError(t, mock.ExpectationsWereMet())
}
