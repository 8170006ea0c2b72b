package db

import "errors"

var (
	// ErrNilRedisStore is returned when a RedisStore pointer is nil or uninitialized.
	ErrNilRedisStore = errors.New("redis store is nil")
	// ErrNilPostgres is returned when the screen log is not configured.
	ErrNilPostgres = errors.New("postgres is nil")
)
