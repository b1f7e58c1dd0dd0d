package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tronobserver/internal/cache"
	"github.com/charlesng35/tronobserver/internal/database/testutil"
	"github.com/charlesng35/tronobserver/internal/models"
)

const testCacheKey = "tron:lookups:recent"

type lookupFixture struct {
	db      *gorm.DB
	redis   *miniredis.Miniredis
	store   *cache.RedisClient
	recent  *RecencyCache
	factory *UnitOfWorkFactory
}

func newLookupFixture(t *testing.T, opts LookupRepositoryOptions) *lookupFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	server := miniredis.RunT(t)
	store := cache.NewRedisClientFromUniversal(redis.NewClient(&redis.Options{
		Addr:       server.Addr(),
		MaxRetries: -1,
	}), time.Second)
	t.Cleanup(func() { _ = store.Close() })

	recent, err := NewRecencyCache(store, RecencyCacheConfig{Key: testCacheKey})
	require.NoError(t, err)

	factory, err := NewUnitOfWorkFactory(db, recent, opts)
	require.NoError(t, err)

	return &lookupFixture{
		db:      db,
		redis:   server,
		store:   store,
		recent:  recent,
		factory: factory,
	}
}

func (f *lookupFixture) insert(t *testing.T, address string, data map[string]any) *models.LookupRecord {
	t.Helper()

	var record *models.LookupRecord
	err := WithUnitOfWork(context.Background(), f.factory, func(uow *UnitOfWork) error {
		var err error
		record, err = uow.Lookups.Insert(context.Background(), address, data)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	return record
}

func (f *lookupFixture) paginate(t *testing.T, pageSize, pageNumber int) []models.LookupRecord {
	t.Helper()

	var records []models.LookupRecord
	err := WithUnitOfWork(context.Background(), f.factory, func(uow *UnitOfWork) error {
		var err error
		records, err = uow.Lookups.GetPaginated(context.Background(), pageSize, pageNumber)
		return err
	})
	require.NoError(t, err)
	return records
}

// cached decodes the blob stored in Redis, bypassing the recency cache.
func (f *lookupFixture) cached(t *testing.T) []models.LookupRecord {
	t.Helper()

	raw, err := f.redis.Get("tronobserver:" + testCacheKey)
	require.NoError(t, err)

	var records []models.LookupRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	return records
}

func (f *lookupFixture) countRows(t *testing.T) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(&models.LookupRecord{}).Count(&total).Error)
	return total
}

func requireSameRecord(t *testing.T, want, got models.LookupRecord) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Address, got.Address)
	require.Equal(t, want.Data, got.Data)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
}

func recordIDs(records []models.LookupRecord) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

func reversedIDs(records []*models.LookupRecord) []string {
	ids := make([]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		ids = append(ids, records[i].ID)
	}
	return ids
}

func testAddress(i int) string {
	return "TAddress" + padded(i)
}

func padded(i int) string {
	const width = 26
	digits := []byte("00000000000000000000000000")
	for pos := width - 1; pos >= 0 && i > 0; pos-- {
		digits[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(digits)
}
