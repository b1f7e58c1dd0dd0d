package cache

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by Update when the value kept changing underneath the
// read-modify-write cycle and the store gave up retrying.
var ErrConflict = errors.New("cache: concurrent update conflict")

// UpdateFunc receives the current value (found reports whether one exists) and returns
// the replacement. Returning an error aborts the update without writing.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store represents a shared cache interface used across the application.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Update atomically replaces the value stored under key. Concurrent updates of the
	// same key never lose each other's writes; fn may run more than once.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
}
