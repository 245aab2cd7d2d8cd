// Package interfaces defines the service and storage contracts for Kabuban.
package interfaces

import (
	"context"

	"github.com/mharuka/kabuban/internal/models"
)

// StorageManager provides access to all record stores.
type StorageManager interface {
	Portfolios() PortfolioStore
	History() HistoryStore
	Alerts() AlertStore
	Knowledge() KnowledgeStore
	Close() error
}

// PortfolioStore persists portfolio aggregate documents keyed by name.
type PortfolioStore interface {
	// Scan returns all portfolios, unordered.
	Scan(ctx context.Context) ([]models.Portfolio, error)
	// Get returns the portfolio by name, or models.ErrNotFound.
	Get(ctx context.Context, name string) (*models.Portfolio, error)
	// Upsert writes the portfolio, replacing any existing document
	// with the same name.
	Upsert(ctx context.Context, p *models.Portfolio) error
	// Delete removes the portfolio by name. Deleting a missing
	// portfolio is not an error.
	Delete(ctx context.Context, name string) error
}

// HistoryStore persists snapshot rows keyed by (portfolio, date). Rows are
// only ever replaced by a same-day write, never removed, so the contract
// has no delete.
type HistoryStore interface {
	// ScanByPortfolio returns all snapshots for the named portfolio,
	// unordered.
	ScanByPortfolio(ctx context.Context, name string) ([]models.Snapshot, error)
	// Upsert writes the snapshot, replacing any existing row for the
	// same portfolio and date.
	Upsert(ctx context.Context, s *models.Snapshot) error
}

// AlertStore persists alert rules keyed by (portfolio, type).
type AlertStore interface {
	// Scan returns all alert rules across portfolios.
	Scan(ctx context.Context) ([]models.AlertRule, error)
	// ScanByPortfolio returns the rules for one portfolio.
	ScanByPortfolio(ctx context.Context, name string) ([]models.AlertRule, error)
	// Upsert writes the rule, replacing any existing rule with the
	// same portfolio and type.
	Upsert(ctx context.Context, r *models.AlertRule) error
	// DeleteMatching removes every rule matching portfolio and type,
	// returning how many were removed.
	DeleteMatching(ctx context.Context, name string, alertType models.AlertType) (int, error)
	// SetLastTriggered records the latest successful notification time
	// on the matching rule.
	SetLastTriggered(ctx context.Context, r *models.AlertRule) error
}

// KnowledgeStore persists knowledge base items keyed by ID.
type KnowledgeStore interface {
	Scan(ctx context.Context) ([]models.KnowledgeItem, error)
	Upsert(ctx context.Context, item *models.KnowledgeItem) error
	// Delete removes the item by ID. Deleting a missing item is not
	// an error.
	Delete(ctx context.Context, id string) error
}
