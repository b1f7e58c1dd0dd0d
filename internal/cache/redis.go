package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis-backed store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "tronobserver:"
	maxUpdateAttempts   = 32
)

// RedisClient implements Store on top of go-redis. Keys are namespaced under a common prefix.
type RedisClient struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisClient creates a new Redis client. It pings the server eagerly so that
// misconfiguration is surfaced during application startup.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := NewRedisClientFromUniversal(redis.NewClient(opts), cfg.Timeout)
	if err := client.Ping(context.Background()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisClientFromUniversal wraps an existing go-redis client. The caller hands over ownership.
func NewRedisClientFromUniversal(client redis.UniversalClient, timeout time.Duration) *RedisClient {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisClient{client: client, timeout: timeout}
}

// Ping verifies the server is reachable.
func (c *RedisClient) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// IncrementWithTTL increments the supplied key and ensures the TTL is set to the requested window.
// It returns the current count and the remaining time-to-live.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if window <= 0 {
		window = time.Minute
	}

	prefixedKey := c.prefixed(key)
	count, err := c.client.Incr(ctx, prefixedKey).Result()
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := c.client.PExpire(ctx, prefixedKey, window).Err(); err != nil {
			return 0, 0, err
		}
	}

	remaining, err := c.client.PTTL(ctx, prefixedKey).Result()
	if err != nil || remaining < 0 {
		return count, window, nil
	}
	return count, remaining, nil
}

// Set stores a value with PX expiry semantics. A non-positive ttl stores without expiry.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.client.Set(ctx, c.prefixed(key), value, positiveTTL(ttl)).Err()
}

// Get retrieves the value associated with a key.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	value, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes one or more keys, ignoring missing keys.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, c.prefixed(key))
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// Update performs an optimistic read-modify-write with WATCH. When another writer
// changes the key between the read and the write the cycle is retried.
func (c *RedisClient) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if fn == nil {
		return errors.New("cache: update function is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prefixedKey := c.prefixed(key)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, prefixedKey).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = nil, false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, prefixedKey, next, positiveTTL(ttl))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := c.client.Watch(ctx, txf, prefixedKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (c *RedisClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *RedisClient) prefixed(key string) string {
	normalized := normalizeKey(key)
	if strings.HasPrefix(normalized, redisKeyPrefix) {
		return normalized
	}
	return normalizeKey(redisKeyPrefix + normalized)
}

// normalizeKey collapses runs of ':' so prefixed keys never contain empty segments.
func normalizeKey(key string) string {
	if key == "" {
		return key
	}
	var builder strings.Builder
	builder.Grow(len(key))
	prevColon := false
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if ch == ':' && prevColon {
			continue
		}
		prevColon = ch == ':'
		builder.WriteByte(ch)
	}
	return builder.String()
}

func positiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
