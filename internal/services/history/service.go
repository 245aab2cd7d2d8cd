// Package history records and serves portfolio valuation snapshots
package history

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
var _ interfaces.HistoryService = (*Service)(nil)

const dateLayout = "2006-01-02"

// Service implements HistoryService
type Service struct {
	storage   interfaces.StorageManager
	evaluator interfaces.SnapshotEvaluator
	locks     *common.KeyedMutex
	location  *time.Location
	logger    *common.Logger
}

// NewService creates a new history service. location fixes the calendar-day
// boundary used for snapshot dates.
func NewService(storage interfaces.StorageManager, evaluator interfaces.SnapshotEvaluator, locks *common.KeyedMutex, location *time.Location, logger *common.Logger) *Service {
	return &Service{
		storage:   storage,
		evaluator: evaluator,
		locks:     locks,
		location:  location,
		logger:    logger,
	}
}

// SaveSnapshot records totalValue under today's date, replacing any row
// already recorded for the same day, then evaluates alert rules against
// the updated history. Evaluation failures are logged, not returned: the
// snapshot is already durable at that point.
func (s *Service) SaveSnapshot(ctx context.Context, name string, totalValue float64, holdings []models.SnapshotHolding) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name required")
	}

	date := time.Now().In(s.location).Format(dateLayout)
	snap := &models.Snapshot{
		PortfolioName: name,
		Date:          date,
		TotalValue:    totalValue,
		Holdings:      holdings,
	}

	unlock := s.locks.Lock(name)
	err := s.storage.History().Upsert(ctx, snap)
	unlock()
	if err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Info().
		Str("portfolio", name).
		Str("date", date).
		Float64("total_value", totalValue).
		Msg("Snapshot saved")

	if s.evaluator != nil {
		if err := s.evaluator.EvaluateSnapshot(ctx, name); err != nil {
			s.logger.Error().
				Err(err).
				Str("portfolio", name).
				Msg("Alert evaluation failed")
		}
	}

	return date, nil
}

// GetHistory returns snapshots in ascending date order. When days > 0 only
// the most recent `days` recorded rows are returned; gaps in the calendar
// are not counted.
func (s *Service) GetHistory(ctx context.Context, name string, days int) ([]models.Snapshot, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}

	unlock := s.locks.RLock(name)
	snapshots, err := s.storage.History().ScanByPortfolio(ctx, name)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Date < snapshots[j].Date
	})

	if days > 0 && len(snapshots) > days {
		snapshots = snapshots[len(snapshots)-days:]
	}
	return snapshots, nil
}
