package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
)

// SnapshotKey is the hash holding the last known banner state.
const SnapshotKey = "adbridge:state"

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// Snapshot is the banner state as last written to Redis.
type Snapshot struct {
	State     ads.State `json:"state"`
	LastOp    string    `json:"last_op"`
	Outcome   string    `json:"outcome"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// RecordTransition stores the state reached by t so other processes can
// read it without asking the coordinator.
func (r *RedisStore) RecordTransition(ctx context.Context, t ads.Transition) error {
	if r == nil || r.Client == nil {
		return ErrNilRedisStore
	}
	phase, _ := t.State.Phase.MarshalText()
	return r.Client.HSet(ctx, SnapshotKey,
		"phase", string(phase),
		"initialized", strconv.FormatBool(t.State.Initialized),
		"native", strconv.FormatBool(t.State.PlatformIsNative),
		"placeholder_visible", strconv.FormatBool(t.State.PlaceholderVisible),
		"last_op", string(t.Op),
		"outcome", t.Outcome,
		"updated_at", strconv.FormatInt(t.At.UnixMilli(), 10),
	).Err()
}

// LoadSnapshot reads the last stored state. ok is false when nothing was stored yet.
func (r *RedisStore) LoadSnapshot(ctx context.Context) (snap Snapshot, ok bool, err error) {
	if r == nil || r.Client == nil {
		return snap, false, ErrNilRedisStore
	}
	vals, err := r.Client.HGetAll(ctx, SnapshotKey).Result()
	if err != nil {
		return snap, false, err
	}
	if len(vals) == 0 {
		return snap, false, nil
	}
	if err := snap.State.Phase.UnmarshalText([]byte(vals["phase"])); err != nil {
		return snap, false, err
	}
	snap.State.Initialized, _ = strconv.ParseBool(vals["initialized"])
	snap.State.PlatformIsNative, _ = strconv.ParseBool(vals["native"])
	snap.State.PlaceholderVisible, _ = strconv.ParseBool(vals["placeholder_visible"])
	snap.LastOp = vals["last_op"]
	snap.Outcome = vals["outcome"]
	if ms, err := strconv.ParseInt(vals["updated_at"], 10, 64); err == nil {
		snap.UpdatedAt = time.UnixMilli(ms)
	}
	return snap, true, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
