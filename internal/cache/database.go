package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tronobserver/internal/models"
)

var errDatabaseStoreNotInitialised = errors.New("cache: database store not initialised")

// DatabaseStore implements the cache Store interface using the primary SQL database.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// DatabaseStoreOption customises a DatabaseStore.
type DatabaseStoreOption func(*DatabaseStore)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) DatabaseStoreOption {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, opts ...DatabaseStoreOption) *DatabaseStore {
	if db == nil {
		return nil
	}
	store := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// IncrementWithTTL atomically increments a counter for the supplied key.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errDatabaseStoreNotInitialised
	}
	if window <= 0 {
		window = time.Minute
	}

	var (
		count  int64
		expiry time.Time
	)
	now := s.now()
	err := s.lockedEntry(ctx, key, func(tx *gorm.DB, entry *models.CacheEntry, found bool) error {
		if found && !entry.Expired(now) {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
			expiry = entry.ExpiresAt
		} else {
			count = 1
			expiry = now.Add(window)
		}
		entry.Key = key
		entry.Value = []byte(strconv.FormatInt(count, 10))
		entry.ExpiresAt = expiry
		return tx.Save(entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

// Set upserts the value for a given key with expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.expiry(ttl),
	}

	return s.db.WithContext(contextOrBackground(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errDatabaseStoreNotInitialised
	}
	ctx = contextOrBackground(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if entry.Expired(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.WithContext(contextOrBackground(ctx)).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// Update runs fn against the current value while holding a row lock, so concurrent
// writers of the same key are serialised by the database.
func (s *DatabaseStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if fn == nil {
		return errors.New("cache: update function is required")
	}

	now := s.now()
	return s.lockedEntry(ctx, key, func(tx *gorm.DB, entry *models.CacheEntry, found bool) error {
		live := found && !entry.Expired(now)
		var current []byte
		if live {
			current = entry.Value
		}

		next, err := fn(current, live)
		if err != nil {
			return err
		}

		entry.Key = key
		entry.Value = next
		entry.ExpiresAt = s.expiry(ttl)
		return tx.Save(entry).Error
	})
}

// PurgeExpired deletes every entry whose expiry has passed and reports how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNotInitialised
	}

	result := s.db.WithContext(contextOrBackground(ctx)).
		Where("expires_at > ? AND expires_at < ?", time.Time{}, s.now()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseStore) lockedEntry(ctx context.Context, key string, fn func(tx *gorm.DB, entry *models.CacheEntry, found bool) error) error {
	return s.db.WithContext(contextOrBackground(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fn(tx, &entry, false)
		}
		if err != nil {
			return err
		}
		return fn(tx, &entry, true)
	})
}

func (s *DatabaseStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
