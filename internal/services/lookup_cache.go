package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/tronobserver/internal/cache"
	"github.com/charlesng35/tronobserver/internal/models"
	"github.com/charlesng35/tronobserver/pkg/logger"
	"github.com/charlesng35/tronobserver/pkg/metrics"
)

const (
	// DefaultRecentLookupsKey is the cache key holding the newest lookups.
	DefaultRecentLookupsKey = "tron:lookups:recent"
	// DefaultRecentLookupsCapacity bounds how many lookups the cache retains.
	DefaultRecentLookupsCapacity = 100
	// DefaultRecentLookupsTTL is re-armed on every write to the cached list.
	DefaultRecentLookupsTTL = 60 * time.Minute
)

var errBlobPresent = errors.New("recency cache: blob already present")

// LoadFunc returns the newest limit records from the durable store.
type LoadFunc func(ctx context.Context, limit int) ([]models.LookupRecord, error)

// RecencyCacheConfig tunes the recency cache.
type RecencyCacheConfig struct {
	Key      string
	Capacity int
	TTL      time.Duration
}

// RecencyCache keeps the newest lookup records as a single ordered blob in the shared
// cache store. Reads never fail: any backend or decoding problem is reported as a miss.
type RecencyCache struct {
	store    cache.Store
	key      string
	capacity int
	ttl      time.Duration
	log      *zap.Logger
}

// NewRecencyCache constructs a recency cache backed by store.
func NewRecencyCache(store cache.Store, cfg RecencyCacheConfig) (*RecencyCache, error) {
	if store == nil {
		return nil, errors.New("recency cache: store is required")
	}

	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultRecentLookupsKey
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultRecentLookupsCapacity
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRecentLookupsTTL
	}

	return &RecencyCache{
		store:    store,
		key:      key,
		capacity: capacity,
		ttl:      ttl,
		log:      logger.WithModule("lookups"),
	}, nil
}

// Capacity reports how many records the cache holds at most. A nil cache holds none.
func (c *RecencyCache) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}

// Get returns up to limit of the newest records. hit is false when the blob is absent,
// expired, unreadable or the backend failed.
func (c *RecencyCache) Get(ctx context.Context, limit int) (records []models.LookupRecord, hit bool) {
	if c == nil {
		return nil, false
	}
	defer func() {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.LookupCacheReads.WithLabelValues(result).Inc()
	}()

	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.log.Warn("recency cache read failed", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	records, err = decodeRecords(raw)
	if err != nil {
		c.log.Warn("recency cache blob is corrupt", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}

	if limit < 0 {
		limit = 0
	}
	if limit < len(records) {
		records = records[:limit]
	}
	return records, true
}

// Put places record at the front of the cached list and trims it to capacity. When the
// blob is absent the list is seeded from load first so it stays a prefix of the store.
func (c *RecencyCache) Put(ctx context.Context, record models.LookupRecord, load LoadFunc) error {
	if c == nil {
		return nil
	}

	var seed []models.LookupRecord
	if load != nil {
		_, found, err := c.store.Get(ctx, c.key)
		if err != nil {
			return c.writeFailed("put", err)
		}
		if !found {
			seed, err = load(ctx, c.capacity)
			if err != nil {
				// A list started from a single record would hide older rows until it expires.
				return c.writeFailed("seed", err)
			}
		}
	}

	err := c.store.Update(ctx, c.key, c.ttl, func(current []byte, found bool) ([]byte, error) {
		existing := seed
		if found {
			decoded, err := decodeRecords(current)
			if err != nil {
				c.log.Warn("replacing corrupt recency cache blob", zap.String("key", c.key), zap.Error(err))
			} else {
				existing = decoded
			}
		}
		return encodeRecords(c.insert(existing, record))
	})
	if err != nil {
		return c.writeFailed("put", err)
	}
	return nil
}

// Fill stores records unless a readable blob already exists.
func (c *RecencyCache) Fill(ctx context.Context, records []models.LookupRecord) error {
	if c == nil {
		return nil
	}
	if len(records) > c.capacity {
		records = records[:c.capacity]
	}

	err := c.store.Update(ctx, c.key, c.ttl, func(current []byte, found bool) ([]byte, error) {
		if found {
			if _, err := decodeRecords(current); err == nil {
				return nil, errBlobPresent
			}
		}
		return encodeRecords(records)
	})
	if err != nil && !errors.Is(err, errBlobPresent) {
		return c.writeFailed("fill", err)
	}
	return nil
}

// Invalidate drops the cached list.
func (c *RecencyCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.store.Delete(ctx, c.key); err != nil {
		return c.writeFailed("invalidate", err)
	}
	return nil
}

// insert returns a new list with record placed by created_at descending, without
// duplicate ids and bounded by capacity. The input slice is not modified.
func (c *RecencyCache) insert(existing []models.LookupRecord, record models.LookupRecord) []models.LookupRecord {
	out := make([]models.LookupRecord, 0, min(len(existing)+1, c.capacity))
	placed := false
	for _, current := range existing {
		if len(out) == c.capacity {
			break
		}
		if current.ID == record.ID {
			continue
		}
		if !placed && !current.CreatedAt.After(record.CreatedAt) {
			out = append(out, record)
			placed = true
			if len(out) == c.capacity {
				break
			}
		}
		out = append(out, current)
	}
	if !placed && len(out) < c.capacity {
		out = append(out, record)
	}
	return out
}

func (c *RecencyCache) writeFailed(operation string, err error) error {
	metrics.LookupCacheWriteFailures.WithLabelValues(operation).Inc()
	c.log.Warn("recency cache write skipped",
		zap.String("key", c.key),
		zap.String("operation", operation),
		zap.Error(err),
	)
	return fmt.Errorf("recency cache: %s: %w", operation, err)
}

func encodeRecords(records []models.LookupRecord) ([]byte, error) {
	if records == nil {
		records = []models.LookupRecord{}
	}
	return json.Marshal(records)
}

func decodeRecords(raw []byte) ([]models.LookupRecord, error) {
	var records []models.LookupRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errors.New("cached value is not a list")
	}
	return records, nil
}
