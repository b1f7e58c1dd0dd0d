package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tronobserver/internal/database"
	"github.com/charlesng35/tronobserver/pkg/logger"
)

// ErrUnitOfWorkClosed is returned when a committed or rolled back unit of work is reused.
var ErrUnitOfWorkClosed = errors.New("unit of work: already closed")

// UnitOfWorkFactory opens one transactional unit of work per request.
type UnitOfWorkFactory struct {
	db     *gorm.DB
	recent *RecencyCache
	opts   LookupRepositoryOptions
	log    *zap.Logger
}

// NewUnitOfWorkFactory constructs a factory. A nil cache disables the recency fast path.
func NewUnitOfWorkFactory(db *gorm.DB, recent *RecencyCache, opts LookupRepositoryOptions) (*UnitOfWorkFactory, error) {
	if db == nil {
		return nil, errors.New("unit of work: db is required")
	}
	return &UnitOfWorkFactory{db: db, recent: recent, opts: opts, log: logger.WithModule("uow")}, nil
}

// UnitOfWork bundles the lookup repository with a single store transaction. Nothing is
// visible to other requests until Commit; cache mutations staged by the repository run
// only after the commit succeeded.
type UnitOfWork struct {
	Lookups *LookupRepository

	ctx   context.Context
	tx    *gorm.DB
	mu    sync.Mutex
	hooks []func(context.Context)
	done  bool
}

// Begin starts a transaction bound to ctx. Cancelling ctx rolls the transaction back.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (*UnitOfWork, error) {
	ctx = ensureContext(ctx)

	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("unit of work: begin: %w", tx.Error)
	}

	uow := &UnitOfWork{ctx: ctx, tx: tx}
	uow.Lookups = newLookupRepository(tx, f.db, f.recent, f.opts, uow.afterCommit)
	return uow, nil
}

// Add stages a new row.
func (u *UnitOfWork) Add(value any) error {
	return u.exec("add", func(tx *gorm.DB) error { return tx.Create(value).Error })
}

// Merge upserts value by primary key.
func (u *UnitOfWork) Merge(value any) error {
	return u.exec("merge", func(tx *gorm.DB) error { return tx.Save(value).Error })
}

// Delete removes value by primary key.
func (u *UnitOfWork) Delete(value any) error {
	return u.exec("delete", func(tx *gorm.DB) error { return tx.Delete(value).Error })
}

// Refresh reloads value from the transaction by its primary key.
func (u *UnitOfWork) Refresh(value any) error {
	return u.exec("refresh", func(tx *gorm.DB) error { return tx.First(value).Error })
}

// Commit makes staged changes durable and then runs the post-commit hooks. A failed commit
// discards the hooks.
func (u *UnitOfWork) Commit() error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return ErrUnitOfWorkClosed
	}
	u.done = true
	hooks := u.hooks
	u.hooks = nil
	u.mu.Unlock()

	if err := u.tx.Commit().Error; err != nil {
		return fmt.Errorf("unit of work: commit: %w", err)
	}

	// The store already holds the rows; finish the cache work even if the caller went away.
	hookCtx := context.WithoutCancel(u.ctx)
	for _, hook := range hooks {
		hook(hookCtx)
	}
	return nil
}

// Rollback discards staged changes and hooks. Rolling back a closed unit of work is a no-op.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	u.hooks = nil
	u.mu.Unlock()

	if err := u.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("unit of work: rollback: %w", err)
	}
	return nil
}

func (u *UnitOfWork) exec(op string, fn func(tx *gorm.DB) error) error {
	u.mu.Lock()
	done := u.done
	u.mu.Unlock()
	if done {
		return ErrUnitOfWorkClosed
	}
	if err := fn(u.tx); err != nil {
		return fmt.Errorf("unit of work: %s: %w", op, err)
	}
	return nil
}

func (u *UnitOfWork) afterCommit(hook func(context.Context)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.done {
		u.hooks = append(u.hooks, hook)
	}
}

// maxUnitOfWorkAttempts bounds how often WithUnitOfWork replays fn after a transient
// store conflict.
const maxUnitOfWorkAttempts = 3

// WithUnitOfWork runs fn inside a unit of work, committing when fn succeeds and rolling
// back when it fails or panics. Serialization failures and deadlocks replay fn in a fresh
// unit of work, so fn must not have side effects outside the transaction.
func WithUnitOfWork(ctx context.Context, factory *UnitOfWorkFactory, fn func(*UnitOfWork) error) (err error) {
	for attempt := 1; ; attempt++ {
		err = runUnitOfWork(ctx, factory, fn)
		if err == nil || attempt >= maxUnitOfWorkAttempts || !database.IsRetryable(err) {
			return err
		}
		if ctx != nil && ctx.Err() != nil {
			return err
		}
		factory.log.Debug("retrying unit of work", zap.Int("attempt", attempt), zap.Error(err))
	}
}

func runUnitOfWork(ctx context.Context, factory *UnitOfWorkFactory, fn func(*UnitOfWork) error) error {
	uow, err := factory.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = uow.Rollback()
			panic(recovered)
		}
	}()

	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return uow.Commit()
}
