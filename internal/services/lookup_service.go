package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/tronobserver/internal/models"
	"github.com/charlesng35/tronobserver/internal/tron"
	"github.com/charlesng35/tronobserver/pkg/logger"
)

// LedgerClient fetches account state from the TRON network.
type LedgerClient interface {
	GetAccountInfo(ctx context.Context, address string) (*tron.AccountInfo, error)
}

// LookupService records ledger lookups and serves their history.
type LookupService struct {
	ledger  LedgerClient
	uow     *UnitOfWorkFactory
	history *LookupRepository
	log     *zap.Logger
}

// NewLookupService wires the ledger client to the persistence layer.
func NewLookupService(ledger LedgerClient, factory *UnitOfWorkFactory) (*LookupService, error) {
	if ledger == nil {
		return nil, errors.New("lookup service: ledger client is required")
	}
	if factory == nil {
		return nil, errors.New("lookup service: unit of work factory is required")
	}

	// Reads run outside a transaction so a SQL-backed cache never waits on the
	// connection held by an open unit of work.
	history, err := NewLookupRepository(factory.db, factory.recent, factory.opts)
	if err != nil {
		return nil, err
	}

	return &LookupService{
		ledger:  ledger,
		uow:     factory,
		history: history,
		log:     logger.WithModule("lookups"),
	}, nil
}

// RecordAccountInfo validates address, fetches its account info and persists the lookup.
// Address errors are returned as *tron.AddressError and ledger failures unchanged; in both
// cases nothing is stored.
func (s *LookupService) RecordAccountInfo(ctx context.Context, address string) (*tron.AccountInfo, error) {
	address, err := tron.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	info, err := s.ledger.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}

	var record *models.LookupRecord
	err = WithUnitOfWork(ctx, s.uow, func(uow *UnitOfWork) error {
		var insertErr error
		record, insertErr = uow.Lookups.Insert(ctx, info.Address, info.Fields())
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("lookup service: record account info: %w", err)
	}

	s.log.Debug("lookup recorded", zap.String("id", record.ID), zap.String("address", record.Address))
	return info, nil
}

// ListRecords returns a page of lookups, newest first, and the total number stored.
func (s *LookupService) ListRecords(ctx context.Context, pageSize, pageNumber int) ([]models.LookupRecord, int64, error) {
	records, err := s.history.GetPaginated(ctx, pageSize, pageNumber)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup service: list records: %w", err)
	}

	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup service: list records: %w", err)
	}

	return records, total, nil
}
