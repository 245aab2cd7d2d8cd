package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
)

// PortfolioStore persists portfolio aggregate documents. The record ID is
// the portfolio name, so an upsert atomically replaces the whole document.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		db:     db,
		logger: logger,
	}
}

func (s *PortfolioStore) Scan(ctx context.Context) ([]models.Portfolio, error) {
	sql := "SELECT * FROM portfolio"

	results, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolios: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

func (s *PortfolioStore) Get(ctx context.Context, name string) (*models.Portfolio, error) {
	record, err := surrealdb.Select[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", name))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if record == nil || record.Name == "" {
		return nil, models.ErrNotFound
	}
	return record, nil
}

func (s *PortfolioStore) Upsert(ctx context.Context, p *models.Portfolio) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("portfolio", p.Name),
		"record": p,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert portfolio after retries: %w", lastErr)
}

func (s *PortfolioStore) Delete(ctx context.Context, name string) error {
	_, err := surrealdb.Delete[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", name))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return nil
}
