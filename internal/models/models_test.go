package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesIDAndTimestamps(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))

	require.NotEmpty(t, base.ID)
	require.False(t, base.CreatedAt.IsZero())
	require.Equal(t, time.UTC, base.CreatedAt.Location())
	require.Equal(t, base.CreatedAt, base.CreatedAt.Truncate(time.Microsecond))
	require.Equal(t, base.CreatedAt, base.UpdatedAt)
}

func TestBaseModelBeforeCreateKeepsExplicitValues(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := BaseModel{ID: "fixed", CreatedAt: created}
	require.NoError(t, base.BeforeCreate(nil))

	require.Equal(t, "fixed", base.ID)
	require.Equal(t, created, base.CreatedAt)
}

func TestNewLookupRecordNormalisesPayload(t *testing.T) {
	record, err := NewLookupRecord(" TRfffNywtDL6wEamxg8V46LJfyR8Fvy7nu ", map[string]any{
		"bandwidth_used": 100,
		"energy_used":    int64(200),
		"trx_balance":    100.5,
	})
	require.NoError(t, err)

	require.Equal(t, "TRfffNywtDL6wEamxg8V46LJfyR8Fvy7nu", record.Address)
	require.Equal(t, float64(100), record.Data["bandwidth_used"])
	require.Equal(t, float64(200), record.Data["energy_used"])
	require.Equal(t, 100.5, record.Data["trx_balance"])

	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded LookupRecord
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, record.Data, decoded.Data)
}

func TestNewLookupRecordWithoutPayload(t *testing.T) {
	record, err := NewLookupRecord("TRfffNywtDL6wEamxg8V46LJfyR8Fvy7nu", nil)
	require.NoError(t, err)
	require.NotNil(t, record.Data)
	require.Empty(t, record.Data)

	_, err = NewLookupRecord("   ", nil)
	require.Error(t, err)
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, CacheEntry{}.Expired(now))
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Second)}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}
