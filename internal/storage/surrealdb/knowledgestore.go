package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/models"
)

// KnowledgeStore persists knowledge base items keyed by their UUID.
type KnowledgeStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewKnowledgeStore(db *surrealdb.DB, logger *common.Logger) *KnowledgeStore {
	return &KnowledgeStore{
		db:     db,
		logger: logger,
	}
}

func (s *KnowledgeStore) Scan(ctx context.Context) ([]models.KnowledgeItem, error) {
	sql := "SELECT * FROM knowledge"

	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge items: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

func (s *KnowledgeStore) Upsert(ctx context.Context, item *models.KnowledgeItem) error {
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("knowledge", item.ID),
		"record": item,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.KnowledgeItem](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to upsert knowledge item after retries: %w", lastErr)
}

func (s *KnowledgeStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.KnowledgeItem](ctx, s.db, surrealmodels.NewRecordID("knowledge", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete knowledge item: %w", err)
	}
	return nil
}
