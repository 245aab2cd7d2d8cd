package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
)

// HistoryStore persists valuation snapshots. The record ID combines
// portfolio name and date, so writing the same day twice replaces the row.
type HistoryStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewHistoryStore(db *surrealdb.DB, logger *common.Logger) *HistoryStore {
	return &HistoryStore{
		db:     db,
		logger: logger,
	}
}

func snapshotID(name, date string) string {
	return name + "_" + date
}

func (s *HistoryStore) ScanByPortfolio(ctx context.Context, name string) ([]models.Snapshot, error) {
	sql := "SELECT * FROM history WHERE portfolio_name = $name"
	vars := map[string]any{"name": name}

	results, err := surrealdb.Query[[]models.Snapshot](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

func (s *HistoryStore) Upsert(ctx context.Context, snap *models.Snapshot) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("history", snapshotID(snap.PortfolioName, snap.Date)),
		"record": snap,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Snapshot](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert snapshot after retries: %w", lastErr)
}
