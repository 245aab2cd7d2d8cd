// Package portfolio provides portfolio definition management services
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
	"github.com/mharuka/kabuban/internal/models"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	storage interfaces.StorageManager
	locks   *common.KeyedMutex
	logger  *common.Logger
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, locks *common.KeyedMutex, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		locks:   locks,
		logger:  logger,
	}
}

// ListPortfolios returns all portfolios sorted by name
func (s *Service) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	portfolios, err := s.storage.Portfolios().Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	sort.Slice(portfolios, func(i, j int) bool {
		return portfolios[i].Name < portfolios[j].Name
	})
	return portfolios, nil
}

// GetPortfolio retrieves a portfolio by name
func (s *Service) GetPortfolio(ctx context.Context, name string) (*models.Portfolio, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}

	unlock := s.locks.RLock(name)
	defer unlock()

	p, err := s.storage.Portfolios().Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SavePortfolio creates or fully replaces the named portfolio's holdings.
// CreatedAt is preserved across replacement; UpdatedAt is refreshed.
func (s *Service) SavePortfolio(ctx context.Context, name string, holdings []models.Holding) (*models.Portfolio, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	for _, h := range holdings {
		if h.Ticker == "" {
			return nil, fmt.Errorf("ticker required")
		}
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	now := time.Now().UTC()
	p := &models.Portfolio{
		Name:      name,
		Holdings:  holdings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := s.storage.Portfolios().Get(ctx, name); err == nil {
		p.CreatedAt = existing.CreatedAt
	}

	if err := s.storage.Portfolios().Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.Info().
		Str("portfolio", name).
		Int("holdings", len(holdings)).
		Msg("Portfolio saved")

	return p, nil
}

// DeletePortfolio removes a portfolio. Idempotent: deleting a missing
// portfolio succeeds. History and alert rules for the name are kept.
func (s *Service) DeletePortfolio(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("name required")
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	if err := s.storage.Portfolios().Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	s.logger.Info().Str("portfolio", name).Msg("Portfolio deleted")
	return nil
}
