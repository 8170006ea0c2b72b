package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestGetLogLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"", "", zap.InfoLevel},
		{"development", "", zap.DebugLevel},
		{"production", "warn", zap.WarnLevel},
		{"dev", "ERROR", zap.ErrorLevel},
		{"", "verbose", zap.InfoLevel},
	}
	for _, tc := range cases {
		t.Setenv("ENV", tc.env)
		t.Setenv("LOG_LEVEL", tc.level)
		assert.Equal(t, tc.want, getLogLevel(), "ENV=%q LOG_LEVEL=%q", tc.env, tc.level)
	}
}

func TestInitLoggerWithLevel(t *testing.T) {
	logger, err := InitLoggerWithLevel(zap.WarnLevel, "adbridge-test")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFor(1).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestMockMetricsRegistry(t *testing.T) {
	m := NewMockMetricsRegistry()
	m.IncrementRequests("/ads/show", "POST", "200")
	m.IncrementRequests("/ads/show", "POST", "200")
	m.IncrementAdOperations("show", "web", "ok")
	m.SetAdPhase("visible")
	m.SetPlaceholderVisible(true)

	assert.Equal(t, 2, m.Count(m.Requests, "/ads/show:200"))
	assert.Equal(t, 0, m.Count(m.Requests, "/ads/hide:200"))
	assert.Equal(t, "visible", m.Phase)
	assert.True(t, m.PlaceholderVisible)
}

func TestNoOpRegistry(t *testing.T) {
	var r MetricsRegistry = NewNoOpRegistry()
	assert.NotPanics(t, func() {
		r.IncrementAdOperations("show", "web", "ok")
		r.SetPlaceholderVisible(false)
	})
}
