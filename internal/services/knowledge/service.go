// Package knowledge manages the knowledge base of notes and documents
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
	"github.com/mharuka/kabuban/internal/models"
)

// Compile-time interface check
var _ interfaces.KnowledgeService = (*Service)(nil)

// Service implements KnowledgeService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new knowledge service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// ListKnowledge returns all items, newest first
func (s *Service) ListKnowledge(ctx context.Context) ([]models.KnowledgeItem, error) {
	items, err := s.storage.Knowledge().Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// SaveKnowledge stores the item, assigning a UUID when absent. An item
// saved with an existing ID replaces the stored copy, keeping CreatedAt.
func (s *Service) SaveKnowledge(ctx context.Context, item *models.KnowledgeItem) (*models.KnowledgeItem, error) {
	if item.Title == "" {
		return nil, fmt.Errorf("title required")
	}

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
		item.CreatedAt = now
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if item.SourceType == "" {
		item.SourceType = "note"
	}

	if err := s.storage.Knowledge().Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save knowledge item: %w", err)
	}

	s.logger.Info().
		Str("id", item.ID).
		Str("title", item.Title).
		Str("source_type", item.SourceType).
		Msg("Knowledge item saved")

	return item, nil
}

// DeleteKnowledge removes the item by ID. Idempotent.
func (s *Service) DeleteKnowledge(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id required")
	}

	if err := s.storage.Knowledge().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete knowledge item: %w", err)
	}

	s.logger.Info().Str("id", id).Msg("Knowledge item deleted")
	return nil
}
