package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tronobserver/internal/models"
	"github.com/charlesng35/tronobserver/pkg/logger"
	"github.com/charlesng35/tronobserver/pkg/metrics"
)

// LookupRepositoryOptions tunes repository reads.
type LookupRepositoryOptions struct {
	// FallbackOnMiss serves the first page from the store when the recency cache is cold.
	// When false a cold cache yields an empty first page.
	FallbackOnMiss bool
}

// DefaultLookupRepositoryOptions returns the options used when none are supplied.
func DefaultLookupRepositoryOptions() LookupRepositoryOptions {
	return LookupRepositoryOptions{FallbackOnMiss: true}
}

// LookupRepository creates lookup records and serves paginated history, answering the
// first page from the recency cache when it can.
type LookupRepository struct {
	db          *gorm.DB
	base        *gorm.DB
	cache       *RecencyCache
	opts        LookupRepositoryOptions
	afterCommit func(func(context.Context))
	log         *zap.Logger
}

// NewLookupRepository constructs a repository outside any unit of work. Cache updates run
// as soon as each statement succeeds. A nil cache disables the fast path.
func NewLookupRepository(db *gorm.DB, recent *RecencyCache, opts LookupRepositoryOptions) (*LookupRepository, error) {
	if db == nil {
		return nil, errors.New("lookup repository: db is required")
	}
	return newLookupRepository(db, db, recent, opts, func(hook func(context.Context)) {
		hook(context.Background())
	}), nil
}

func newLookupRepository(db, base *gorm.DB, recent *RecencyCache, opts LookupRepositoryOptions, afterCommit func(func(context.Context))) *LookupRepository {
	return &LookupRepository{
		db:          db,
		base:        base,
		cache:       recent,
		opts:        opts,
		afterCommit: afterCommit,
		log:         logger.WithModule("lookups"),
	}
}

// Insert persists a new lookup record. The recency cache is updated only once the
// surrounding transaction has committed.
func (r *LookupRepository) Insert(ctx context.Context, address string, data map[string]any) (*models.LookupRecord, error) {
	record, err := models.NewLookupRecord(address, data)
	if err != nil {
		return nil, fmt.Errorf("lookup repository: %w", err)
	}

	if err := r.db.WithContext(ensureContext(ctx)).Create(record).Error; err != nil {
		return nil, fmt.Errorf("lookup repository: create record: %w", err)
	}

	snapshot := *record
	r.afterCommit(func(ctx context.Context) {
		metrics.LookupRecordsCreated.Inc()
		// Cache failures are already logged and counted; the record is durable regardless.
		_ = r.cache.Put(ctx, snapshot, r.latest)
	})

	return record, nil
}

// GetPaginated returns page pageNumber of the lookup history, newest first. Non-positive
// arguments yield an empty page.
func (r *LookupRepository) GetPaginated(ctx context.Context, pageSize, pageNumber int) ([]models.LookupRecord, error) {
	ctx = ensureContext(ctx)
	if pageSize < 1 || pageNumber < 1 {
		return []models.LookupRecord{}, nil
	}

	if pageNumber == 1 && pageSize <= r.cache.Capacity() {
		if records, hit := r.cache.Get(ctx, pageSize); hit {
			return records, nil
		}
		if !r.opts.FallbackOnMiss {
			return []models.LookupRecord{}, nil
		}

		records, err := r.page(ctx, pageSize, 0)
		if err != nil {
			return nil, err
		}
		r.afterCommit(r.warm)
		return records, nil
	}

	return r.page(ctx, pageSize, (pageNumber-1)*pageSize)
}

// Count reports the number of durable lookup records.
func (r *LookupRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ensureContext(ctx)).Model(&models.LookupRecord{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("lookup repository: count records: %w", err)
	}
	return total, nil
}

func (r *LookupRepository) page(ctx context.Context, limit, offset int) ([]models.LookupRecord, error) {
	records := make([]models.LookupRecord, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("lookup repository: list records: %w", err)
	}
	return records, nil
}

// latest reads committed rows through the base handle; it runs after the transaction ends.
func (r *LookupRepository) latest(ctx context.Context, limit int) ([]models.LookupRecord, error) {
	records := make([]models.LookupRecord, 0, limit)
	err := r.base.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("lookup repository: load latest records: %w", err)
	}
	return records, nil
}

func (r *LookupRepository) warm(ctx context.Context) {
	records, err := r.latest(ctx, r.cache.Capacity())
	if err != nil {
		r.log.Warn("recency cache warm-up skipped", zap.Error(err))
		return
	}
	_ = r.cache.Fill(ctx, records)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
