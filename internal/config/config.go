package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	// Platform selection: "android", "ios", "web" or "auto"
	Platform       string
	ShellUserAgent string
	// Native plugin bridge of the app shell
	NativeBridgeURL     string
	NativeBridgeTimeout time.Duration
	// Delay between screen mount and the deferred banner show
	ShowDelay       time.Duration
	RedisAddr       string
	AppStateChannel string
	ClickHouseDSN   string
	PostgresDSN     string
	TokenSecret     string
	TokenTTL        time.Duration
	// How many unmounted screens stay queryable
	RetiredScreens int
	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	return source{}.load()
}

// LoadFile reads a flat TOML file whose keys are the environment variable
// names (PORT = "8787", TRACING_ENABLED = true). Environment variables still
// win over the file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	file := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return Config{}, fmt.Errorf("config key %s: nested values are not supported", k)
		}
		file[k] = fmt.Sprint(v)
	}
	return source{file: file}.load(), nil
}

// source resolves a key from the environment, then the optional file.
type source struct {
	file map[string]string
}

func (s source) load() Config {
	cfg := Config{}

	cfg.Port = s.getenv("PORT", "8787")
	cfg.ReadTimeout = s.envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = s.envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = s.getenv("SERVICE_NAME", "adbridge")

	cfg.Platform = s.getenv("AD_PLATFORM", "auto")
	cfg.ShellUserAgent = s.getenv("SHELL_USER_AGENT", "")
	cfg.NativeBridgeURL = s.getenv("NATIVE_BRIDGE_URL", "http://localhost:8790")
	cfg.NativeBridgeTimeout = s.envDuration("NATIVE_BRIDGE_TIMEOUT", 3*time.Second)
	// give the hosting screen a second to settle its layout
	cfg.ShowDelay = s.envDuration("SHOW_DELAY", 1*time.Second)

	// Redis and the databases are optional; an empty value disables them
	cfg.RedisAddr = s.getenv("REDIS_ADDR", "")
	cfg.AppStateChannel = s.getenv("APP_STATE_CHANNEL", "app-state-changes")
	cfg.ClickHouseDSN = s.getenv("CLICKHOUSE_DSN", "")
	cfg.PostgresDSN = s.getenv("POSTGRES_DSN", "")

	cfg.TokenSecret = s.getenv("TOKEN_SECRET", "")
	cfg.TokenTTL = s.envDuration("TOKEN_TTL", 24*time.Hour)
	cfg.RetiredScreens = s.envInt("RETIRED_SCREENS", 256)

	cfg.DBMaxOpenConns = s.envInt("DB_MAX_OPEN_CONNS", 5)
	cfg.DBMaxIdleConns = s.envInt("DB_MAX_IDLE_CONNS", 2)
	cfg.DBConnMaxLifetime = s.envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = s.envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	cfg.TracingEnabled = s.envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = s.getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = s.envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

// getenv returns the value of the environment variable if set, otherwise def.
func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func (s source) envDuration(key string, def time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. When unset or invalid, def is returned.
func (s source) envBool(key string, def bool) bool {
	v := s.lookup(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func (s source) envInt(key string, def int) int {
	v := s.lookup(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func (s source) envFloat(key string, def float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
